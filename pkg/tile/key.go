package tile

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kiesman99/tilecut/pkg/keyspace"
)

// MaxZoom is the deepest zoom level whose tile count fits a uint32.
const MaxZoom = 31

// Size is the edge length in pixels of every tile served by MBTiles.
const Size = 256

// Dimension names used when a Key is stored in a keyspace.
const (
	DimZoom = "zoom"
	DimX    = "x"
	DimY    = "y"
)

// ErrKeyMismatch is returned when an opaque key does not describe a tile.
var ErrKeyMismatch = errors.New("key does not describe a tile")

// Key identifies one tile. Y follows the MBTiles convention: row 0 is the
// southern-most row.
type Key struct {
	Zoom uint32
	X    uint32
	Y    uint32
}

// NewKey creates a Key from MBTiles (TMS) coordinates.
func NewKey(zoom, x, y uint32) Key {
	return Key{Zoom: zoom, X: x, Y: y}
}

// KeyFromXYZ creates a Key from slippy map coordinates, whose row 0 is the
// northern-most row.
func KeyFromXYZ(zoom, x, y uint32) Key {
	return Key{Zoom: zoom, X: x, Y: FlipTileY(zoom, y)}
}

// XYZ returns the slippy map coordinates of the tile.
func (k Key) XYZ() (zoom, x, y uint32) {
	return k.Zoom, k.X, FlipTileY(k.Zoom, k.Y)
}

// Valid reports whether the key addresses an existing tile.
func (k Key) Valid() bool {
	return k.Zoom <= MaxZoom && k.X < ZoomToTileCount(k.Zoom) && k.Y < ZoomToTileCount(k.Zoom)
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Zoom, k.X, k.Y)
}

// ToKeyspace converts k into an opaque catalog key.
func ToKeyspace(k Key) keyspace.Key {
	return keyspace.New(
		keyspace.Pair{Dimension: DimZoom, Identifier: strconv.FormatUint(uint64(k.Zoom), 10)},
		keyspace.Pair{Dimension: DimX, Identifier: strconv.FormatUint(uint64(k.X), 10)},
		keyspace.Pair{Dimension: DimY, Identifier: strconv.FormatUint(uint64(k.Y), 10)},
	)
}

// FromKeyspace is the inverse of ToKeyspace.
func FromKeyspace(ks keyspace.Key) (Key, error) {
	if len(ks) != 3 {
		return Key{}, fmt.Errorf("%w: %d dimensions in %q", ErrKeyMismatch, len(ks), ks.String())
	}

	var k Key
	seen := make(map[string]bool, 3)
	for _, p := range ks {
		if seen[p.Dimension] {
			return Key{}, fmt.Errorf("%w: duplicate dimension %q", ErrKeyMismatch, p.Dimension)
		}
		seen[p.Dimension] = true

		v, err := strconv.ParseUint(p.Identifier, 10, 32)
		if err != nil {
			return Key{}, fmt.Errorf("%w: dimension %q: %v", ErrKeyMismatch, p.Dimension, err)
		}

		switch p.Dimension {
		case DimZoom:
			k.Zoom = uint32(v)
		case DimX:
			k.X = uint32(v)
		case DimY:
			k.Y = uint32(v)
		default:
			return Key{}, fmt.Errorf("%w: unknown dimension %q", ErrKeyMismatch, p.Dimension)
		}
	}
	return k, nil
}
