// Package keyspace defines the multi-dimensional keys used by tile catalogs.
// A key is an ordered set of dimension/identifier pairs; catalogs treat it as
// opaque and only rely on its canonical string form.
package keyspace

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformed is returned by Parse for strings that are not a canonical key.
var ErrMalformed = errors.New("malformed key")

// Pair is one dimension of a key.
type Pair struct {
	Dimension  string
	Identifier string
}

// Key is a list of pairs, kept sorted by dimension.
type Key []Pair

// New builds a key from pairs. The input slice is not modified.
func New(pairs ...Pair) Key {
	k := make(Key, len(pairs))
	copy(k, pairs)
	sort.SliceStable(k, func(i, j int) bool {
		return k[i].Dimension < k[j].Dimension
	})
	return k
}

// Get returns the identifier stored for dimension.
func (k Key) Get(dimension string) (string, bool) {
	for _, p := range k {
		if p.Dimension == dimension {
			return p.Identifier, true
		}
	}
	return "", false
}

// String returns the canonical form, "dim=id/dim=id".
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = p.Dimension + "=" + p.Identifier
	}
	return strings.Join(parts, "/")
}

// Parse reads the canonical form produced by String.
func Parse(s string) (Key, error) {
	if s == "" {
		return Key{}, nil
	}
	var pairs []Pair
	for _, part := range strings.Split(s, "/") {
		dim, id, ok := strings.Cut(part, "=")
		if !ok || dim == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		pairs = append(pairs, Pair{Dimension: dim, Identifier: id})
	}
	return New(pairs...), nil
}
