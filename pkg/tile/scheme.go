package tile

import (
	"fmt"
	"strings"
)

// Scheme names a row numbering convention.
type Scheme string

const (
	// XYZ numbers rows from the north, as slippy map servers do.
	XYZ Scheme = "xyz"
	// TMS numbers rows from the south, as MBTiles does.
	TMS Scheme = "tms"
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(s)) {
	case "", XYZ:
		return XYZ, nil
	case TMS:
		return TMS, nil
	}
	return "", fmt.Errorf("unknown tile scheme %q", s)
}

// Row returns the row number of k in scheme s.
func (s Scheme) Row(k Key) uint32 {
	if s == TMS {
		return k.Y
	}
	return FlipTileY(k.Zoom, k.Y)
}

// Key builds the tile addressed by zoom, x and row in scheme s.
func (s Scheme) Key(zoom, x, row uint32) Key {
	if s == TMS {
		return NewKey(zoom, x, row)
	}
	return KeyFromXYZ(zoom, x, row)
}
