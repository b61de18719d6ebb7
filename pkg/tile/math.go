// Package tile addresses tiles of the slippy map / MBTiles tile grid and
// converts between tiles and geographic extents.
package tile

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/kiesman99/tilecut/pkg/geo"
)

// ErrEmptySet is returned when a bounding box is requested for no tiles.
var ErrEmptySet = errors.New("empty tile set")

// ZoomToTileCount returns the number of tiles per axis at zoom. zoom must
// not exceed MaxZoom; deeper zooms do not fit a uint32 and return 0.
func ZoomToTileCount(zoom uint32) uint32 {
	if zoom > MaxZoom {
		return 0
	}
	return 1 << zoom
}

// TileCountToZoom returns the smallest zoom with at least n tiles per axis.
func TileCountToZoom(n uint32) uint32 {
	if n <= 1 {
		return 0
	}
	return uint32(bits.Len32(n - 1))
}

// ZoomToTileSize returns the edge length of a tile in normalized Mercator
// units.
func ZoomToTileSize(zoom uint32) float64 {
	return 1 / float64(ZoomToTileCount(zoom))
}

// TileSizeToZoom returns the smallest zoom whose tiles are no larger than size.
func TileSizeToZoom(size float64) (uint32, error) {
	if !(size > 0) {
		return 0, fmt.Errorf("tile size %v must be positive", size)
	}
	n := math.Ceil(1 / size)
	if n > float64(ZoomToTileCount(MaxZoom)) {
		return 0, fmt.Errorf("tile size %v is smaller than a tile at zoom %d", size, MaxZoom)
	}
	return TileCountToZoom(uint32(n)), nil
}

// FlipTileY converts a row index between the top-left origin used for
// normalized Mercator math and the bottom-left origin used by MBTiles. It is
// its own inverse.
func FlipTileY(zoom, y uint32) uint32 {
	return ZoomToTileCount(zoom) - y - 1
}

// TileIndex returns the column (or top-left origin row) containing location
// at zoom. Locations outside [0, 1) are clamped to the first or last tile.
func TileIndex(location float64, zoom uint32) uint32 {
	n := ZoomToTileCount(zoom)
	i := math.Floor(location * float64(n))
	if !(i >= 0) {
		return 0
	}
	if i >= float64(n) {
		return n - 1
	}
	return uint32(i)
}

// BoundingBox returns the extent of the tile k.
func BoundingBox(k Key, p geo.Projection) (geo.BoundingBox, error) {
	n := float64(ZoomToTileCount(k.Zoom))
	x := float64(k.X)
	y := float64(FlipTileY(k.Zoom, k.Y))
	return geo.NewBoundingBox(
		geo.NormMerc{X: x / n, Y: y / n},
		geo.NormMerc{X: (x + 1) / n, Y: (y + 1) / n},
		p,
	)
}

// SetBoundingBox returns the smallest box containing every tile in keys. The
// tiles do not need to be contiguous.
func SetBoundingBox(keys []Key, p geo.Projection) (geo.BoundingBox, error) {
	if len(keys) == 0 {
		return geo.BoundingBox{}, ErrEmptySet
	}
	union, err := BoundingBox(keys[0], p)
	if err != nil {
		return geo.BoundingBox{}, err
	}
	for _, k := range keys[1:] {
		b, err := BoundingBox(k, p)
		if err != nil {
			return geo.BoundingBox{}, err
		}
		union = geo.Union(union, b)
	}
	return union, nil
}

// FindTilesInBoundingBox returns every tile at zoom that covers some part of
// bound, row by row from the southern-most row. Tiles that only touch the
// east or south edge of bound are included. Zooms deeper than MaxZoom have
// no tiles.
func FindTilesInBoundingBox(bound geo.BoundingBox, zoom uint32) []Key {
	if zoom > MaxZoom {
		return nil
	}
	nw, se := bound.NW(), bound.SE()

	minX := TileIndex(nw.X, zoom)
	maxX := TileIndex(se.X, zoom)
	// The north-west corner has the smallest normalized row and therefore
	// the largest flipped one.
	minY := FlipTileY(zoom, TileIndex(se.Y, zoom))
	maxY := FlipTileY(zoom, TileIndex(nw.Y, zoom))

	keys := make([]Key, 0, int(maxX-minX+1)*int(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			keys = append(keys, Key{Zoom: zoom, X: x, Y: y})
		}
	}
	return keys
}
