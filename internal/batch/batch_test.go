package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/tilecut/internal/catalog"
	"github.com/kiesman99/tilecut/internal/extract"
	"github.com/kiesman99/tilecut/internal/mosaic"
	"github.com/kiesman99/tilecut/pkg/geo"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

var sphere = geo.NewSphericalProjection(geo.EarthRadius)

func box(t *testing.T, x0, y0, x1, y1 float64) geo.BoundingBox {
	t.Helper()
	b, err := geo.NewBoundingBox(geo.NormMerc{X: x0, Y: y0}, geo.NormMerc{X: x1, Y: y1}, sphere)
	require.NoError(t, err)
	return b
}

var echo = RendererFunc(func(k tile.Key, f raster.Format) ([]byte, error) {
	return []byte(k.String() + "." + string(f)), nil
})

type memSink struct {
	mu    sync.Mutex
	tiles []Tile
}

func (s *memSink) Put(_ context.Context, t Tile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles = append(s.tiles, t)
	return nil
}

func TestKeysSkipsTouchingTiles(t *testing.T) {
	keys := Keys(box(t, 0.25, 0.25, 0.5, 0.5), 2, 2)
	assert.Equal(t, []tile.Key{tile.NewKey(2, 1, 2)}, keys)

	assert.Len(t, Keys(box(t, 0, 0, 1, 1), 0, 2), 21)
	assert.Len(t, Keys(box(t, 0.4, 0.7, 0.6, 0.8), 4, 4), 8)
}

func TestRun(t *testing.T) {
	sink := &memSink{}
	res, err := Run(context.Background(), echo, sink, Options{
		Bound:   box(t, 0, 0, 1, 1),
		MinZoom: 0,
		MaxZoom: 2,
		Workers: 3,
		Scheme:  tile.TMS,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, res.Total)
	assert.Equal(t, 21, res.Successful)
	assert.Empty(t, res.Failed)

	require.Len(t, sink.tiles, 21)
	for _, tl := range sink.tiles {
		assert.Equal(t, raster.PNG, tl.Format)
		assert.Equal(t, tl.Key.Y, tl.Row)
		assert.Equal(t, tl.Key.String()+".png", string(tl.Data))
		assert.Nil(t, tl.WorldFile)
	}
}

func TestRunXYZRows(t *testing.T) {
	sink := &memSink{}
	_, err := Run(context.Background(), echo, sink, Options{
		Bound:          box(t, 0, 0, 0.5, 0.5),
		MinZoom:        1,
		MaxZoom:        1,
		WriteWorldFile: true,
	})
	require.NoError(t, err)
	require.Len(t, sink.tiles, 1)

	tl := sink.tiles[0]
	assert.Equal(t, tile.NewKey(1, 0, 1), tl.Key)
	assert.Equal(t, uint32(0), tl.Row)
	assert.NotEmpty(t, tl.WorldFile)
}

func TestRunAggregatesFailures(t *testing.T) {
	boom := errors.New("render failed")
	failWhen := func(pred func(tile.Key) bool) Renderer {
		return RendererFunc(func(k tile.Key, f raster.Format) ([]byte, error) {
			if pred(k) {
				return nil, boom
			}
			return echo(k, f)
		})
	}
	opts := Options{Bound: box(t, 0, 0, 1, 1), MinZoom: 2, MaxZoom: 2}

	res, err := Run(context.Background(), failWhen(func(k tile.Key) bool { return k.X == 0 }), &memSink{}, opts)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Successful)
	require.Len(t, res.Failed, 4)
	assert.ErrorIs(t, res.Failed[0].Err, boom)

	_, err = Run(context.Background(), failWhen(func(k tile.Key) bool { return k.X < 3 }), &memSink{}, opts)
	var te *TileError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 16, te.Total)
	assert.Equal(t, 4, te.Successful)
	assert.Len(t, te.FailedTiles, 12)
	assert.Contains(t, te.Error(), "12/16")

	_, err = Run(context.Background(), failWhen(func(tile.Key) bool { return true }), &memSink{}, opts)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.Successful)
	assert.Equal(t, "no tiles could be rendered successfully", te.Error())
}

func TestRunSmallSourceThroughMosaic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.NRGBA{G: 255, A: 255}}, image.Point{}, draw.Src)
	src, err := raster.FromImage(img, 4)
	require.NoError(t, err)

	bound := box(t, 0.5, 0.3, 0.5003, 0.3003)
	ib, err := geo.NewImageBox(100, 100, bound)
	require.NoError(t, err)

	driver := raster.NewMemory()
	e, err := extract.New(driver, src, ib)
	require.NoError(t, err)

	// Below zoom 3 the source covers less than one tile pixel.
	_, err = e.Extract(tile.NewKey(0, 0, 0), raster.PNG)
	require.ErrorIs(t, err, geo.ErrInvalidGeometry)

	m := mosaic.New(driver)
	m.Add("small", e)

	sink := &memSink{}
	res, err := Run(context.Background(), m, sink, Options{Bound: bound, MinZoom: 0, MaxZoom: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Successful)
	assert.Empty(t, res.Failed)
	require.Len(t, sink.tiles, 5)
	for _, tl := range sink.tiles {
		assert.NotEmpty(t, tl.Data, tl.Key.String())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, echo, &memSink{}, Options{Bound: box(t, 0, 0, 1, 1), MaxZoom: 3})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunInvalidOptions(t *testing.T) {
	_, err := Run(context.Background(), echo, &memSink{}, Options{})
	assert.ErrorIs(t, err, geo.ErrInvalidGeometry)

	_, err = Run(context.Background(), echo, &memSink{}, Options{Bound: box(t, 0, 0, 1, 1), MinZoom: 3, MaxZoom: 2})
	assert.Error(t, err)
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), echo, NewDirSink(dir), Options{
		Bound:          box(t, 0, 0, 0.5, 0.5),
		MinZoom:        1,
		MaxZoom:        1,
		Format:         raster.JPEG,
		WriteWorldFile: true,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "1", "0", "0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "1/0/1.jpeg", string(data))

	_, err = os.Stat(filepath.Join(dir, "1", "0", "0.jgw"))
	assert.NoError(t, err)
}

func TestCatalogSink(t *testing.T) {
	store := catalog.NewMemory()
	_, err := Run(context.Background(), echo, CatalogSink{Store: store}, Options{
		Bound:   box(t, 0, 0, 1, 1),
		MinZoom: 1,
		MaxZoom: 1,
	})
	require.NoError(t, err)

	ctx := context.Background()
	got, ok, err := store.Get(ctx, tile.NewKey(1, 1, 0), raster.PNG)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1/1/0.png", string(got))

	cols, err := store.Columns(ctx, 1)
	require.NoError(t, err)
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	assert.Equal(t, []uint32{0, 1}, cols)
}
