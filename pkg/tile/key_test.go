package tile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/tilecut/pkg/keyspace"
)

func TestKeyspaceRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	keys := []Key{{0, 0, 0}, {MaxZoom, 1<<31 - 1, 1<<31 - 1}, {3, 4, 1}}
	for i := 0; i < 200; i++ {
		z := uint32(rng.Intn(MaxZoom + 1))
		n := ZoomToTileCount(z)
		keys = append(keys, NewKey(z, uint32(rng.Int63n(int64(n))), uint32(rng.Int63n(int64(n)))))
	}

	for _, k := range keys {
		ks := ToKeyspace(k)
		require.Len(t, ks, 3)

		back, err := FromKeyspace(ks)
		require.NoError(t, err)
		assert.Equal(t, k, back)

		parsed, err := keyspace.Parse(ks.String())
		require.NoError(t, err)
		back, err = FromKeyspace(parsed)
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
}

func TestFromKeyspaceMismatch(t *testing.T) {
	cases := map[string]keyspace.Key{
		"too few": keyspace.New(
			keyspace.Pair{Dimension: DimZoom, Identifier: "1"},
			keyspace.Pair{Dimension: DimX, Identifier: "0"},
		),
		"too many": keyspace.New(
			keyspace.Pair{Dimension: DimZoom, Identifier: "1"},
			keyspace.Pair{Dimension: DimX, Identifier: "0"},
			keyspace.Pair{Dimension: DimY, Identifier: "0"},
			keyspace.Pair{Dimension: "band", Identifier: "2"},
		),
		"unknown dimension": keyspace.New(
			keyspace.Pair{Dimension: DimZoom, Identifier: "1"},
			keyspace.Pair{Dimension: DimX, Identifier: "0"},
			keyspace.Pair{Dimension: "row", Identifier: "0"},
		),
		"duplicate dimension": keyspace.New(
			keyspace.Pair{Dimension: DimZoom, Identifier: "1"},
			keyspace.Pair{Dimension: DimX, Identifier: "0"},
			keyspace.Pair{Dimension: DimX, Identifier: "1"},
		),
		"not a number": keyspace.New(
			keyspace.Pair{Dimension: DimZoom, Identifier: "one"},
			keyspace.Pair{Dimension: DimX, Identifier: "0"},
			keyspace.Pair{Dimension: DimY, Identifier: "0"},
		),
		"negative": keyspace.New(
			keyspace.Pair{Dimension: DimZoom, Identifier: "1"},
			keyspace.Pair{Dimension: DimX, Identifier: "-1"},
			keyspace.Pair{Dimension: DimY, Identifier: "0"},
		),
	}

	for name, ks := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromKeyspace(ks)
			assert.ErrorIs(t, err, ErrKeyMismatch)
		})
	}
}

func TestKeyXYZ(t *testing.T) {
	k := KeyFromXYZ(3, 4, 6)
	assert.Equal(t, NewKey(3, 4, 1), k)

	z, x, y := k.XYZ()
	assert.Equal(t, []uint32{3, 4, 6}, []uint32{z, x, y})
	assert.Equal(t, "3/4/1", k.String())
}

func TestKeyValid(t *testing.T) {
	assert.True(t, NewKey(0, 0, 0).Valid())
	assert.True(t, NewKey(3, 7, 7).Valid())
	assert.False(t, NewKey(3, 8, 0).Valid())
	assert.False(t, NewKey(3, 0, 8).Valid())
	assert.False(t, NewKey(32, 0, 0).Valid())
}
