package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCanonicalOrder(t *testing.T) {
	k := New(Pair{"y", "1"}, Pair{"zoom", "3"}, Pair{"x", "4"})

	assert.Equal(t, "x=4/y=1/zoom=3", k.String())

	id, ok := k.Get("zoom")
	assert.True(t, ok)
	assert.Equal(t, "3", id)

	_, ok = k.Get("band")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	k, err := Parse("zoom=3/x=4/y=1")
	require.NoError(t, err)
	assert.Equal(t, New(Pair{"x", "4"}, Pair{"y", "1"}, Pair{"zoom", "3"}), k)

	empty, err := Parse("")
	require.NoError(t, err)
	assert.Len(t, empty, 0)

	for _, bad := range []string{"zoom", "=3", "zoom=3//x=1"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}
