// Package raster provides the pixel side of tile extraction: decoding source
// images, creating tiles, copying pixel regions and encoding the result.
package raster

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported raster format")
	ErrForeignRaster     = errors.New("raster was not created by this driver")
	ErrReleased          = errors.New("raster has been released")
	ErrRegion            = errors.New("invalid raster region")
	ErrBands             = errors.New("unsupported band count")
)

// Raster describes an open raster.
type Raster interface {
	Width() int
	Height() int
	Bands() int
}

// Driver creates, fills, copies between and encodes rasters. Implementations
// used by concurrent tile extraction must allow concurrent reads of the same
// source raster.
type Driver interface {
	Create(width, height, bands int) (Raster, error)
	SetNoData(r Raster, value float64) error
	// CopyRegion copies the pixels of sr in src into dr in dst. The two
	// rectangles describe the same geographic extent and are resampled when
	// their sizes differ.
	CopyRegion(dst Raster, dr image.Rectangle, src Raster, sr image.Rectangle) error
	Encode(w io.Writer, r Raster, f Format) error
	Release(r Raster) error
}

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	TIFF Format = "tiff"
)

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "tiff", "tif", "geotiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension used for the format, without a dot.
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return "jpg"
	case TIFF:
		return "tif"
	}
	return string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case TIFF:
		return "image/tiff"
	}
	return "application/octet-stream"
}
