// Package extract cuts fixed-size map tiles out of a single georeferenced
// raster.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/kiesman99/tilecut/pkg/geo"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

// ErrSizeMismatch is returned by New when the raster and its ImageBox
// disagree on pixel dimensions.
var ErrSizeMismatch = errors.New("raster size does not match image box")

// Option configures an Extractor.
type Option func(*Extractor)

// WithNoData sets the sample written to destination pixels the source does
// not cover. The default is 0.
func WithNoData(v float64) Option {
	return func(e *Extractor) { e.nodata = v }
}

// WithTileSize sets the edge length of extracted tiles in pixels.
func WithTileSize(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.size = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// Extractor holds a read-only source raster and the geometry it covers. It
// is safe for concurrent use when the driver allows concurrent reads of the
// source.
type Extractor struct {
	driver raster.Driver
	src    raster.Raster
	box    geo.ImageBox
	nodata float64
	size   int
	log    *zap.Logger
}

// New returns an extractor for src, whose pixels span box.
func New(driver raster.Driver, src raster.Raster, box geo.ImageBox, opts ...Option) (*Extractor, error) {
	if driver == nil || src == nil {
		return nil, errors.New("extract: nil driver or source")
	}
	if src.Width() != box.Width() || src.Height() != box.Height() {
		return nil, fmt.Errorf("%w: raster %dx%d, box %dx%d",
			ErrSizeMismatch, src.Width(), src.Height(), box.Width(), box.Height())
	}

	e := &Extractor{
		driver: driver,
		src:    src,
		box:    box,
		size:   tile.Size,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Extractor) Bound() geo.BoundingBox { return e.box.Bound() }
func (e *Extractor) Bands() int             { return e.src.Bands() }
func (e *Extractor) TileSize() int          { return e.size }
func (e *Extractor) NoData() float64        { return e.nodata }

// Covers reports whether the source overlaps tile k. Tiles that only touch
// the source's edge are not covered.
func (e *Extractor) Covers(k tile.Key) bool {
	tb, err := tile.BoundingBox(k, e.box.Bound().Projection())
	if err != nil {
		return false
	}
	return geo.Intersecting(tb, e.box.Bound())
}

// regions returns the pixel rectangles in the source and in a width x height
// destination that both cover the overlap of tile k and the source.
func (e *Extractor) regions(k tile.Key, width, height int) (src, dst image.Rectangle, err error) {
	tb, err := tile.BoundingBox(k, e.box.Bound().Projection())
	if err != nil {
		return src, dst, err
	}
	tbox, err := geo.NewImageBox(width, height, tb)
	if err != nil {
		return src, dst, err
	}
	overlap, err := geo.Intersect(tb, e.box.Bound())
	if err != nil {
		return src, dst, err
	}

	sw, err := e.box.Window(overlap)
	if err != nil {
		return src, dst, err
	}
	dw, err := tbox.Window(overlap)
	if err != nil {
		return src, dst, err
	}

	e.log.Debug("tile window",
		zap.Stringer("key", k),
		zap.Stringer("source", sw.Rect()),
		zap.Stringer("destination", dw.Rect()),
	)
	return sw.Rect(), dw.Rect(), nil
}

// Paint copies the part of the source that overlaps tile k into dst, which
// must have been created by the same driver and is taken to span exactly the
// tile. Pixels outside the overlap are left untouched.
func (e *Extractor) Paint(dst raster.Raster, k tile.Key) error {
	sr, dr, err := e.regions(k, dst.Width(), dst.Height())
	if err != nil {
		return err
	}
	return e.driver.CopyRegion(dst, dr, e.src, sr)
}

// Extract renders tile k in format f. Geometry errors wrap
// geo.ErrInvalidGeometry or geo.ErrNonIntersecting; driver errors are
// returned as the driver produced them.
func (e *Extractor) Extract(k tile.Key, f raster.Format) (data []byte, err error) {
	sr, dr, err := e.regions(k, e.size, e.size)
	if err != nil {
		return nil, err
	}

	dst, err := e.driver.Create(e.size, e.size, e.src.Bands())
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := e.driver.Release(dst); rerr != nil && err == nil {
			data, err = nil, rerr
		}
	}()

	if err := e.driver.SetNoData(dst, e.nodata); err != nil {
		return nil, err
	}
	if err := e.driver.CopyRegion(dst, dr, e.src, sr); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := e.driver.Encode(&buf, dst, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Open decodes the raster at path and returns an extractor over bound.
func Open(driver raster.Driver, path string, bound geo.BoundingBox, opts ...Option) (*Extractor, error) {
	img, err := raster.Open(path)
	if err != nil {
		return nil, err
	}
	box, err := geo.NewImageBox(img.Width(), img.Height(), bound)
	if err != nil {
		return nil, err
	}
	return New(driver, img, box, opts...)
}
