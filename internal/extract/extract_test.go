package extract

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/tilecut/pkg/geo"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

var sphere = geo.NewSphericalProjection(geo.EarthRadius)

// source returns a 512x512 raster over the north-west quarter of the world
// where pixel (x, y) holds R = x/2 and G = y/2.
func source(t *testing.T) (*raster.Image, geo.ImageBox) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 512, 512))
	for y := 0; y < 512; y++ {
		for x := 0; x < 512; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x / 2), G: uint8(y / 2), B: 9, A: 255})
		}
	}
	src, err := raster.FromImage(img, 4)
	require.NoError(t, err)

	b, err := geo.NewBoundingBox(geo.NormMerc{X: 0, Y: 0}, geo.NormMerc{X: 0.5, Y: 0.5}, sphere)
	require.NoError(t, err)
	box, err := geo.NewImageBox(512, 512, b)
	require.NoError(t, err)
	return src, box
}

func decode(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	img, err := raster.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 4, img.Bands())
	return img.Image().(*image.NRGBA)
}

func TestNew(t *testing.T) {
	src, box := source(t)

	e, err := New(raster.NewMemory(), src, box)
	require.NoError(t, err)
	assert.Equal(t, tile.Size, e.TileSize())
	assert.Equal(t, 4, e.Bands())
	assert.True(t, e.Bound().Equal(box.Bound()))

	small, err := raster.NewImage(10, 10, 4)
	require.NoError(t, err)
	_, err = New(raster.NewMemory(), small, box)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	e, err = New(raster.NewMemory(), src, box, WithTileSize(512), WithNoData(3))
	require.NoError(t, err)
	assert.Equal(t, 512, e.TileSize())
	assert.Equal(t, 3.0, e.NoData())
}

func TestCovers(t *testing.T) {
	src, box := source(t)
	e, err := New(raster.NewMemory(), src, box)
	require.NoError(t, err)

	assert.True(t, e.Covers(tile.NewKey(0, 0, 0)))
	assert.True(t, e.Covers(tile.NewKey(1, 0, 1)))
	assert.False(t, e.Covers(tile.NewKey(1, 1, 1)))
	assert.False(t, e.Covers(tile.NewKey(1, 0, 0)))
	assert.True(t, e.Covers(tile.NewKey(2, 1, 2)))
	assert.False(t, e.Covers(tile.NewKey(2, 2, 3)))
}

func TestExtractDirectCopy(t *testing.T) {
	src, box := source(t)
	e, err := New(raster.NewMemory(), src, box)
	require.NoError(t, err)

	// Top row, second column at zoom 2: source pixels 256..511 x 0..255.
	data, err := e.Extract(tile.NewKey(2, 1, 3), raster.PNG)
	require.NoError(t, err)

	img := decode(t, data)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 133, G: 10, B: 9, A: 255}, img.NRGBAAt(10, 20))
	assert.Equal(t, color.NRGBA{R: 255, G: 127, B: 9, A: 255}, img.NRGBAAt(255, 255))
}

func TestExtractDownsamples(t *testing.T) {
	src, box := source(t)
	e, err := New(raster.NewMemory(), src, box)
	require.NoError(t, err)

	data, err := e.Extract(tile.NewKey(1, 0, 1), raster.PNG)
	require.NoError(t, err)

	img := decode(t, data)
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 9, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 9, A: 255}, img.NRGBAAt(255, 255))
}

func TestExtractPartialCoverage(t *testing.T) {
	src, box := source(t)
	e, err := New(raster.NewMemory(), src, box)
	require.NoError(t, err)

	data, err := e.Extract(tile.NewKey(0, 0, 0), raster.PNG)
	require.NoError(t, err)

	img := decode(t, data)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(127, 127).A)
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(128, 128))
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(200, 10))
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(10, 200))
}

func TestExtractNonIntersecting(t *testing.T) {
	src, box := source(t)
	e, err := New(raster.NewMemory(), src, box)
	require.NoError(t, err)

	_, err = e.Extract(tile.NewKey(1, 1, 0), raster.PNG)
	assert.ErrorIs(t, err, geo.ErrNonIntersecting)
}

func TestPaint(t *testing.T) {
	src, box := source(t)
	d := raster.NewMemory()
	e, err := New(d, src, box)
	require.NoError(t, err)

	dst, err := d.Create(64, 64, 4)
	require.NoError(t, err)
	require.NoError(t, e.Paint(dst, tile.NewKey(1, 0, 1)))

	img := dst.(*raster.Image).Image().(*image.NRGBA)
	assert.Equal(t, uint8(255), img.NRGBAAt(63, 63).A)
}

// recorder is a driver that logs every call and fails the named operation.
type recorder struct {
	calls []string
	fail  string
	err   error
}

type handle struct{ w, h, bands int }

func (h *handle) Width() int  { return h.w }
func (h *handle) Height() int { return h.h }
func (h *handle) Bands() int  { return h.bands }

func (r *recorder) step(name string) error {
	r.calls = append(r.calls, name)
	if r.fail == name {
		return r.err
	}
	return nil
}

func (r *recorder) Create(w, h, bands int) (raster.Raster, error) {
	if err := r.step("create"); err != nil {
		return nil, err
	}
	return &handle{w, h, bands}, nil
}

func (r *recorder) SetNoData(raster.Raster, float64) error { return r.step("nodata") }

func (r *recorder) CopyRegion(dst raster.Raster, dr image.Rectangle, src raster.Raster, sr image.Rectangle) error {
	return r.step("copy")
}

func (r *recorder) Encode(w io.Writer, _ raster.Raster, _ raster.Format) error {
	if err := r.step("encode"); err != nil {
		return err
	}
	_, err := w.Write([]byte("tile"))
	return err
}

func (r *recorder) Release(raster.Raster) error { return r.step("release") }

func TestExtractCallOrder(t *testing.T) {
	_, box := source(t)
	d := &recorder{}
	e, err := New(d, &handle{512, 512, 3}, box)
	require.NoError(t, err)

	data, err := e.Extract(tile.NewKey(2, 0, 3), raster.JPEG)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), data)
	assert.Equal(t, []string{"create", "nodata", "copy", "encode", "release"}, d.calls)
}

func TestExtractPassesDriverErrors(t *testing.T) {
	_, box := source(t)
	boom := errors.New("disk on fire")

	for _, step := range []string{"create", "nodata", "copy", "encode", "release"} {
		t.Run(step, func(t *testing.T) {
			d := &recorder{fail: step, err: boom}
			e, err := New(d, &handle{512, 512, 3}, box)
			require.NoError(t, err)

			data, err := e.Extract(tile.NewKey(2, 0, 3), raster.PNG)
			assert.Same(t, boom, err)
			assert.Nil(t, data)
			if step != "create" {
				assert.Equal(t, "release", d.calls[len(d.calls)-1])
			}
		})
	}
}
