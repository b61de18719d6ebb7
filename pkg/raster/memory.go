package raster

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/draw"
)

// Memory is a Driver for *Image rasters. It holds no state of its own, so a
// single value can be shared by any number of goroutines.
type Memory struct {
	// Interpolator resamples regions whose source and destination sizes
	// differ. Nil means nearest neighbour.
	Interpolator draw.Interpolator
}

// NewMemory returns a driver that resamples with nearest neighbour.
func NewMemory() *Memory {
	return &Memory{Interpolator: draw.NearestNeighbor}
}

func (d *Memory) Create(width, height, bands int) (Raster, error) {
	return NewImage(width, height, bands)
}

func (d *Memory) SetNoData(r Raster, value float64) error {
	m, err := own(r)
	if err != nil {
		return err
	}
	m.fill(sample(value))
	return nil
}

func (d *Memory) CopyRegion(dst Raster, dr image.Rectangle, src Raster, sr image.Rectangle) error {
	dm, err := own(dst)
	if err != nil {
		return err
	}
	sm, err := own(src)
	if err != nil {
		return err
	}

	// Windows are rounded independently and can overshoot by a pixel.
	dr = dr.Intersect(dm.img.Bounds())
	sr = sr.Intersect(sm.img.Bounds())
	if dr.Empty() || sr.Empty() {
		return fmt.Errorf("%w: copy %v into %v", ErrRegion, sr, dr)
	}

	if dr.Size() == sr.Size() {
		draw.Copy(dm.img, dr.Min, sm.img, sr, draw.Src, nil)
		return nil
	}
	interp := d.Interpolator
	if interp == nil {
		interp = draw.NearestNeighbor
	}
	interp.Scale(dm.img, dr, sm.img, sr, draw.Src, nil)
	return nil
}

func (d *Memory) Encode(w io.Writer, r Raster, f Format) error {
	m, err := own(r)
	if err != nil {
		return err
	}
	return encode(w, m.img, f)
}

func (d *Memory) Release(r Raster) error {
	m, err := own(r)
	if err != nil {
		return err
	}
	m.img = nil
	return nil
}

func own(r Raster) (*Image, error) {
	m, ok := r.(*Image)
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignRaster, r)
	}
	if m.img == nil {
		return nil, ErrReleased
	}
	return m, nil
}
