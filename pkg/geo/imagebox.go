package geo

import (
	"fmt"
	"image"
	"math"
)

// ImageBox is a pixel rectangle bound to a geographic extent. X and Y locate
// its top-left corner inside a larger pixel space it may be a window of.
type ImageBox struct {
	width, height int
	x, y          int
	bound         BoundingBox
}

// NewImageBox creates an ImageBox at the origin.
func NewImageBox(width, height int, bound BoundingBox) (ImageBox, error) {
	return NewImageBoxAt(width, height, bound, 0, 0)
}

// NewImageBoxAt creates an ImageBox whose top-left corner sits at (x, y).
func NewImageBoxAt(width, height int, bound BoundingBox, x, y int) (ImageBox, error) {
	if width <= 0 || height <= 0 {
		return ImageBox{}, errorf(ErrInvalidGeometry, "image size %dx%d must be positive", width, height)
	}
	if x < 0 || y < 0 {
		return ImageBox{}, errorf(ErrInvalidGeometry, "image offset (%d, %d) must not be negative", x, y)
	}
	if bound.proj == nil {
		return ImageBox{}, errorf(ErrInvalidGeometry, "image box needs a bounding box")
	}
	return ImageBox{width: width, height: height, x: x, y: y, bound: bound}, nil
}

func (ib ImageBox) Width() int         { return ib.width }
func (ib ImageBox) Height() int        { return ib.height }
func (ib ImageBox) X() int             { return ib.x }
func (ib ImageBox) Y() int             { return ib.y }
func (ib ImageBox) X2() int            { return ib.x + ib.width }
func (ib ImageBox) Y2() int            { return ib.y + ib.height }
func (ib ImageBox) Bound() BoundingBox { return ib.bound }

// Rect returns the pixel rectangle covered by the box.
func (ib ImageBox) Rect() image.Rectangle {
	return image.Rect(ib.x, ib.y, ib.X2(), ib.Y2())
}

// Window maps sub, a region inside the box's own bound, to the pixels it
// covers. The scale is affine in normalized Mercator space and every pixel
// value is rounded to the nearest integer, halves away from zero. The
// resulting offset is added to the box's own offset so windows compose.
func (ib ImageBox) Window(sub BoundingBox) (ImageBox, error) {
	sx := float64(ib.width) / ib.bound.DX()
	sy := float64(ib.height) / ib.bound.DY()

	x := int(math.Round((sub.nw.X - ib.bound.nw.X) * sx))
	y := int(math.Round((sub.nw.Y - ib.bound.nw.Y) * sy))
	w := int(math.Round(sub.DX() * sx))
	h := int(math.Round(sub.DY() * sy))

	win, err := NewImageBoxAt(w, h, sub, ib.x+x, ib.y+y)
	if err != nil {
		return ImageBox{}, fmt.Errorf("window %v of %v: %w", sub, ib, err)
	}
	return win, nil
}

// PixelSize returns the size of one pixel in the projection's units.
func (ib ImageBox) PixelSize() (float64, float64) {
	return ib.bound.DE() / float64(ib.width), ib.bound.DN() / float64(ib.height)
}

func (ib ImageBox) String() string {
	return fmt.Sprintf("ImageBox[%dx%d at (%d, %d) over %v]", ib.width, ib.height, ib.x, ib.y, ib.bound)
}
