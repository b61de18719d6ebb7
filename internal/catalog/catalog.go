// Package catalog stores rendered tiles under their opaque keyspace key and
// lists what it holds.
package catalog

import (
	"context"
	"slices"

	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

// Store is a tile cache. Listings return distinct values in ascending
// order; rows use the MBTiles numbering of tile.Key.
type Store interface {
	Get(ctx context.Context, k tile.Key, f raster.Format) ([]byte, bool, error)
	Put(ctx context.Context, k tile.Key, f raster.Format, data []byte) error
	Zooms(ctx context.Context) ([]uint32, error)
	Columns(ctx context.Context, zoom uint32) ([]uint32, error)
	Rows(ctx context.Context, zoom uint32) ([]uint32, error)
}

func sorted(set map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
