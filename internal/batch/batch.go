// Package batch renders every tile of a bounding box over a range of zoom
// levels and hands the results to a Sink.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/tilecut/pkg/geo"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

// Renderer produces one encoded tile. *mosaic.Mosaic and
// *extract.Extractor (through Extract) both fit.
type Renderer interface {
	Render(k tile.Key, f raster.Format) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(k tile.Key, f raster.Format) ([]byte, error)

func (fn RendererFunc) Render(k tile.Key, f raster.Format) ([]byte, error) { return fn(k, f) }

// Options contains all batch parameters.
type Options struct {
	Bound            geo.BoundingBox
	MinZoom, MaxZoom uint32
	Format           raster.Format
	// Workers bounds concurrent renders. Zero means one per CPU.
	Workers        int
	WriteWorldFile bool
	// TileSize is the pixel size used for world files. Zero means tile.Size.
	TileSize int
	// Scheme selects the row numbering handed to the sink.
	Scheme tile.Scheme
	Logger *zap.Logger
}

// Tile is one rendered tile on its way to a Sink.
type Tile struct {
	Key    tile.Key
	Row    uint32
	Format raster.Format
	Data   []byte
	// WorldFile is set when Options.WriteWorldFile is.
	WorldFile []byte
}

// Sink receives rendered tiles. Put is called from several goroutines.
type Sink interface {
	Put(ctx context.Context, t Tile) error
}

// Result summarises a run.
type Result struct {
	Total      int
	Successful int
	Failed     []FailedTile
	Duration   time.Duration
}

// FailedTile is a tile that could not be rendered or stored.
type FailedTile struct {
	Key tile.Key
	Err error
}

// TileError is returned when every tile or more than half of them failed.
type TileError struct {
	Message     string
	FailedTiles []FailedTile
	Successful  int
	Total       int
}

func (e *TileError) Error() string {
	return e.Message
}

func (o *Options) validate() error {
	if o.Bound.Projection() == nil {
		return fmt.Errorf("%w: batch bound is not set", geo.ErrInvalidGeometry)
	}
	if o.MinZoom > o.MaxZoom || o.MaxZoom > tile.MaxZoom {
		return fmt.Errorf("invalid zoom range %d..%d", o.MinZoom, o.MaxZoom)
	}
	if o.Format == "" {
		o.Format = raster.PNG
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.TileSize <= 0 {
		o.TileSize = tile.Size
	}
	if o.Scheme == "" {
		o.Scheme = tile.XYZ
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

// Keys returns every tile between minZoom and maxZoom that overlaps bound.
// Tiles that only touch bound along an edge are left out.
func Keys(bound geo.BoundingBox, minZoom, maxZoom uint32) []tile.Key {
	var keys []tile.Key
	for z := minZoom; z <= maxZoom; z++ {
		for _, k := range tile.FindTilesInBoundingBox(bound, z) {
			tb, err := tile.BoundingBox(k, bound.Projection())
			if err != nil || !geo.Intersecting(tb, bound) {
				continue
			}
			keys = append(keys, k)
		}
	}
	return keys
}

// Run renders the pyramid described by opts. Failures of single tiles are
// collected; the run only fails as a whole when the context is cancelled
// or too many tiles failed, in which case the error is a *TileError.
func Run(ctx context.Context, r Renderer, sink Sink, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	start := time.Now()

	keys := Keys(opts.Bound, opts.MinZoom, opts.MaxZoom)
	log.Info("batch started",
		zap.Stringer("bound", opts.Bound),
		zap.Uint32("min_zoom", opts.MinZoom),
		zap.Uint32("max_zoom", opts.MaxZoom),
		zap.Int("tiles", len(keys)),
		zap.Int("workers", opts.Workers),
	)

	var (
		mu         sync.Mutex
		failed     []FailedTile
		successful int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, k := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := renderOne(gctx, r, sink, k, &opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Warn("tile failed", zap.Stringer("key", k), zap.Error(err))
				failed = append(failed, FailedTile{Key: k, Err: err})
				return nil
			}
			successful++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := len(keys)
	result := &Result{
		Total:      total,
		Successful: successful,
		Failed:     failed,
		Duration:   time.Since(start),
	}
	log.Info("batch finished",
		zap.Int("successful", successful),
		zap.Int("failed", len(failed)),
		zap.Duration("duration", result.Duration),
	)

	if total > 0 && successful == 0 {
		return result, &TileError{
			Message:     "no tiles could be rendered successfully",
			FailedTiles: failed,
			Successful:  successful,
			Total:       total,
		}
	}
	if len(failed) > total/2 {
		return result, &TileError{
			Message:     fmt.Sprintf("too many tile failures: %d/%d failed", len(failed), total),
			FailedTiles: failed,
			Successful:  successful,
			Total:       total,
		}
	}
	return result, nil
}

func renderOne(ctx context.Context, r Renderer, sink Sink, k tile.Key, opts *Options) error {
	data, err := r.Render(k, opts.Format)
	if err != nil {
		return err
	}

	t := Tile{
		Key:    k,
		Row:    opts.Scheme.Row(k),
		Format: opts.Format,
		Data:   data,
	}
	if opts.WriteWorldFile {
		tb, err := tile.BoundingBox(k, opts.Bound.Projection())
		if err != nil {
			return err
		}
		box, err := geo.NewImageBox(opts.TileSize, opts.TileSize, tb)
		if err != nil {
			return err
		}
		t.WorldFile = raster.WorldFile(box)
	}
	return sink.Put(ctx, t)
}
