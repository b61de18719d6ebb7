package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kiesman99/tilecut/internal/catalog"
	"github.com/kiesman99/tilecut/pkg/raster"
)

// DirSink writes tiles to {Dir}/{z}/{x}/{row}.{ext}, with the world file
// next to the tile when one was rendered.
type DirSink struct {
	Dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

// Path returns the file a tile is written to.
func (s *DirSink) Path(t Tile) string {
	return filepath.Join(s.Dir,
		strconv.FormatUint(uint64(t.Key.Zoom), 10),
		strconv.FormatUint(uint64(t.Key.X), 10),
		strconv.FormatUint(uint64(t.Row), 10)+"."+t.Format.Ext(),
	)
}

func (s *DirSink) Put(ctx context.Context, t Tile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, t.Data, 0o644); err != nil {
		return fmt.Errorf("write tile %v: %w", t.Key, err)
	}
	if t.WorldFile == nil {
		return nil
	}
	wf := path[:len(path)-len(filepath.Ext(path))] + "." + raster.WorldFileExt(t.Format)
	if err := os.WriteFile(wf, t.WorldFile, 0o644); err != nil {
		return fmt.Errorf("write world file %v: %w", t.Key, err)
	}
	return nil
}

// CatalogSink stores tiles in a catalog. Rows and world files are not
// kept; the catalog addresses tiles by key.
type CatalogSink struct {
	Store catalog.Store
}

func (s CatalogSink) Put(ctx context.Context, t Tile) error {
	return s.Store.Put(ctx, t.Key, t.Format, t.Data)
}
