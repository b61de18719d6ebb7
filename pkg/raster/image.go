package raster

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Image is an in-memory raster with 1 (gray), 3 (RGB) or 4 (RGBA) bands.
// Three band images are stored as opaque RGBA.
type Image struct {
	bands int
	img   draw.Image
}

// NewImage allocates a zeroed raster.
func NewImage(width, height, bands int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrRegion, width, height)
	}
	r := image.Rect(0, 0, width, height)
	switch bands {
	case 1:
		return &Image{bands: 1, img: image.NewGray(r)}, nil
	case 3:
		img := image.NewRGBA(r)
		draw.Draw(img, r, image.Opaque, image.Point{}, draw.Src)
		return &Image{bands: 3, img: img}, nil
	case 4:
		return &Image{bands: 4, img: image.NewNRGBA(r)}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrBands, bands)
}

// FromImage wraps a decoded image, converting it to the band layout that
// matches its color model.
func FromImage(src image.Image, bands int) (*Image, error) {
	b := src.Bounds()
	dst, err := NewImage(b.Dx(), b.Dy(), bands)
	if err != nil {
		return nil, err
	}
	draw.Copy(dst.img, image.Point{}, src, b, draw.Src, nil)
	return dst, nil
}

func (m *Image) Width() int {
	if m.img == nil {
		return 0
	}
	return m.img.Bounds().Dx()
}

func (m *Image) Height() int {
	if m.img == nil {
		return 0
	}
	return m.img.Bounds().Dy()
}

func (m *Image) Bands() int { return m.bands }

// Image exposes the pixels. The returned image must not be modified while
// the raster is shared.
func (m *Image) Image() image.Image { return m.img }

// fill sets every sample of every band to v. Three band images keep their
// alpha opaque.
func (m *Image) fill(v uint8) {
	switch img := m.img.(type) {
	case *image.Gray:
		for i := range img.Pix {
			img.Pix[i] = v
		}
	case *image.RGBA:
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 0xff
		}
	case *image.NRGBA:
		for i := range img.Pix {
			img.Pix[i] = v
		}
	}
}

// sample converts a no-data value to the 8 bit sample stored in the bands.
func sample(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
