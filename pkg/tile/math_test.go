package tile

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/tilecut/pkg/geo"
)

var sphere = geo.NewSphericalProjection(geo.EarthRadius)

func TestZoomToTileCount(t *testing.T) {
	assert.Equal(t, uint32(32), ZoomToTileCount(5))
	assert.Equal(t, uint32(1), ZoomToTileCount(0))
	assert.Equal(t, uint32(1024), ZoomToTileCount(10))
	assert.Equal(t, uint32(1)<<31, ZoomToTileCount(MaxZoom))
	assert.Equal(t, uint32(0), ZoomToTileCount(MaxZoom+1))
}

func TestTileCountToZoom(t *testing.T) {
	cases := map[uint32]uint32{
		0:    0,
		1:    0,
		2:    1,
		3:    2,
		30:   5,
		32:   5,
		33:   6,
		200:  8,
		1024: 10,
	}
	for n, want := range cases {
		assert.Equal(t, want, TileCountToZoom(n), "n=%d", n)
	}
	for z := uint32(0); z <= MaxZoom; z++ {
		assert.Equal(t, z, TileCountToZoom(ZoomToTileCount(z)))
	}
}

func TestTileSize(t *testing.T) {
	assert.Equal(t, 1.0, ZoomToTileSize(0))
	assert.Equal(t, 1.0/32, ZoomToTileSize(5))

	for z := uint32(0); z <= 20; z++ {
		got, err := TileSizeToZoom(ZoomToTileSize(z))
		require.NoError(t, err)
		assert.Equal(t, z, got)
	}

	got, err := TileSizeToZoom(0.3)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got)

	_, err = TileSizeToZoom(0)
	assert.Error(t, err)
	_, err = TileSizeToZoom(-1)
	assert.Error(t, err)
}

func TestFlipTileY(t *testing.T) {
	assert.Equal(t, uint32(6), FlipTileY(3, 1))
	assert.Equal(t, uint32(0), FlipTileY(0, 0))

	for z := uint32(0); z <= 8; z++ {
		for y := uint32(0); y < ZoomToTileCount(z); y++ {
			assert.Equal(t, y, FlipTileY(z, FlipTileY(z, y)))
		}
	}
}

func TestTileIndex(t *testing.T) {
	assert.Equal(t, uint32(1), TileIndex(.3, 2))
	assert.Equal(t, uint32(30), TileIndex(.95, 5))
	assert.Equal(t, uint32(0), TileIndex(0, 5))
	assert.Equal(t, uint32(4), TileIndex(.5, 3))

	// Outside the world.
	assert.Equal(t, uint32(31), TileIndex(1, 5))
	assert.Equal(t, uint32(0), TileIndex(-.1, 5))
}

func TestBoundingBox(t *testing.T) {
	b, err := BoundingBox(NewKey(3, 4, 1), sphere)
	require.NoError(t, err)

	assert.Equal(t, geo.NormMerc{X: .5, Y: .75}, b.NW())
	assert.Equal(t, geo.NormMerc{X: .625, Y: .875}, b.SE())
}

func TestBoundingBoxMatchesMaptile(t *testing.T) {
	for _, k := range []Key{
		KeyFromXYZ(0, 0, 0),
		KeyFromXYZ(3, 4, 1),
		KeyFromXYZ(10, 511, 340),
		KeyFromXYZ(12, 2145, 1434),
	} {
		b, err := BoundingBox(k, sphere)
		require.NoError(t, err)

		z, x, y := k.XYZ()
		want := maptile.New(x, y, maptile.Zoom(z)).Bound()

		assert.InDelta(t, want.Min.Lon(), b.NWLatLon().LonDegrees(), 1e-8, "key %v", k)
		assert.InDelta(t, want.Max.Lat(), b.NWLatLon().LatDegrees(), 1e-8, "key %v", k)
		assert.InDelta(t, want.Max.Lon(), b.SELatLon().LonDegrees(), 1e-8, "key %v", k)
		assert.InDelta(t, want.Min.Lat(), b.SELatLon().LatDegrees(), 1e-8, "key %v", k)
	}
}

func TestTileIndexMatchesMaptile(t *testing.T) {
	points := []orb.Point{{-0.1278, 51.5074}, {8.5417, 47.3769}, {139.6917, 35.6895}}
	for _, pt := range points {
		nm := geo.NewLatLonDegrees(pt.Lat(), pt.Lon()).NormMerc()
		for z := uint32(1); z <= 16; z++ {
			want := maptile.At(pt, maptile.Zoom(z))
			assert.Equal(t, want.X, TileIndex(nm.X, z), "point %v zoom %d", pt, z)
			assert.Equal(t, want.Y, TileIndex(nm.Y, z), "point %v zoom %d", pt, z)
		}
	}
}

func TestSetBoundingBox(t *testing.T) {
	b, err := SetBoundingBox([]Key{NewKey(3, 4, 1), NewKey(3, 6, 3)}, sphere)
	require.NoError(t, err)

	assert.Equal(t, geo.NormMerc{X: .5, Y: .5}, b.NW())
	assert.Equal(t, geo.NormMerc{X: .875, Y: .875}, b.SE())

	_, err = SetBoundingBox(nil, sphere)
	assert.ErrorIs(t, err, ErrEmptySet)
}

func TestFindTilesInBoundingBox(t *testing.T) {
	bound, err := geo.NewBoundingBox(geo.NormMerc{X: .4, Y: .7}, geo.NormMerc{X: .6, Y: .8}, sphere)
	require.NoError(t, err)

	got := FindTilesInBoundingBox(bound, 4)

	assert.ElementsMatch(t, []Key{
		{4, 6, 3}, {4, 7, 3}, {4, 8, 3}, {4, 9, 3},
		{4, 6, 4}, {4, 7, 4}, {4, 8, 4}, {4, 9, 4},
	}, got)
}

func TestFindTilesOfTileIncludesTile(t *testing.T) {
	k := NewKey(6, 20, 41)
	b, err := BoundingBox(k, sphere)
	require.NoError(t, err)

	found := FindTilesInBoundingBox(b, 6)
	assert.Contains(t, found, k)

	for _, f := range found {
		fb, err := BoundingBox(f, sphere)
		require.NoError(t, err)
		if f == k {
			assert.True(t, geo.Intersecting(b, fb))
		} else {
			assert.False(t, geo.Intersecting(b, fb), "neighbour %v only touches %v", f, k)
		}
	}
}

func TestFindTilesWholeWorld(t *testing.T) {
	world, err := BoundingBox(NewKey(0, 0, 0), sphere)
	require.NoError(t, err)

	got := FindTilesInBoundingBox(world, 2)
	assert.Len(t, got, 16)
	for _, k := range got {
		assert.True(t, k.Valid(), "%v", k)
	}
}

func TestFindTilesBeyondMaxZoom(t *testing.T) {
	world, err := BoundingBox(NewKey(0, 0, 0), sphere)
	require.NoError(t, err)

	assert.Empty(t, FindTilesInBoundingBox(world, MaxZoom+1))
	assert.Empty(t, FindTilesInBoundingBox(world, 40))
}
