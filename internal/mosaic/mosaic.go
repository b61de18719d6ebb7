// Package mosaic composites several georeferenced sources into single
// tiles.
package mosaic

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tidwall/rtree"
	"go.uber.org/zap"

	"github.com/kiesman99/tilecut/internal/metrics"
	"github.com/kiesman99/tilecut/pkg/geo"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

// ErrNoCoverage is returned by Render when no source overlaps the tile.
var ErrNoCoverage = errors.New("no source covers the tile")

// Source is a raster that can paint its part of a tile.
// *extract.Extractor implements it.
type Source interface {
	Bound() geo.BoundingBox
	Bands() int
	Paint(dst raster.Raster, k tile.Key) error
}

// Entry is one named source.
type Entry struct {
	Name   string
	Source Source
	seq    int
}

type Option func(*Mosaic)

func WithNoData(v float64) Option {
	return func(m *Mosaic) { m.nodata = v }
}

func WithTileSize(n int) Option {
	return func(m *Mosaic) {
		if n > 0 {
			m.size = n
		}
	}
}

func WithProjection(p geo.Projection) Option {
	return func(m *Mosaic) {
		if p != nil {
			m.proj = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Mosaic) {
		if l != nil {
			m.log = l
		}
	}
}

// Mosaic indexes sources by extent. Sources added later are painted over
// earlier ones where they overlap.
type Mosaic struct {
	driver raster.Driver
	nodata float64
	size   int
	proj   geo.Projection
	log    *zap.Logger

	mu      sync.RWMutex
	tree    rtree.RTreeG[*Entry]
	entries []*Entry
}

func New(driver raster.Driver, opts ...Option) *Mosaic {
	m := &Mosaic{
		driver: driver,
		size:   tile.Size,
		proj:   geo.NewSphericalProjection(geo.EarthRadius),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add indexes src under name.
func (m *Mosaic) Add(name string, src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &Entry{Name: name, Source: src, seq: len(m.entries)}
	nw, se := src.Bound().NW(), src.Bound().SE()
	m.tree.Insert([2]float64{nw.X, nw.Y}, [2]float64{se.X, se.Y}, e)
	m.entries = append(m.entries, e)

	m.log.Info("source added",
		zap.String("name", name),
		zap.Stringer("bound", src.Bound()),
		zap.Int("bands", src.Bands()),
	)
}

func (m *Mosaic) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries returns every source in insertion order.
func (m *Mosaic) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e
	}
	return out
}

// Bound returns the union of every source extent. ok is false when the
// mosaic is empty.
func (m *Mosaic) Bound() (b geo.BoundingBox, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, e := range m.entries {
		if i == 0 {
			b = e.Source.Bound()
			continue
		}
		b = geo.Union(b, e.Source.Bound())
	}
	return b, len(m.entries) > 0
}

// Covering returns the sources overlapping bound in insertion order.
// Sources that only share an edge with bound are left out.
func (m *Mosaic) Covering(bound geo.BoundingBox) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nw, se := bound.NW(), bound.SE()
	var found []Entry
	m.tree.Search([2]float64{nw.X, nw.Y}, [2]float64{se.X, se.Y},
		func(_, _ [2]float64, e *Entry) bool {
			if geo.Intersecting(bound, e.Source.Bound()) {
				found = append(found, *e)
			}
			return true
		},
	)
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	return found
}

// Render paints every source covering tile k onto one nodata filled tile
// and encodes it in format f.
func (m *Mosaic) Render(k tile.Key, f raster.Format) (data []byte, err error) {
	start := time.Now()
	defer func() {
		status := metrics.StatusOK
		switch {
		case errors.Is(err, ErrNoCoverage):
			status = metrics.StatusEmpty
		case err != nil:
			status = metrics.StatusError
		}
		metrics.ObserveRender(string(f), status, start)
	}()

	tb, err := tile.BoundingBox(k, m.proj)
	if err != nil {
		return nil, err
	}
	entries := m.Covering(tb)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoCoverage, k)
	}

	bands := 0
	for _, e := range entries {
		if b := e.Source.Bands(); b > bands {
			bands = b
		}
	}

	dst, err := m.driver.Create(m.size, m.size, bands)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := m.driver.Release(dst); rerr != nil && err == nil {
			data, err = nil, rerr
		}
	}()

	if err := m.driver.SetNoData(dst, m.nodata); err != nil {
		return nil, err
	}
	for _, e := range entries {
		err := e.Source.Paint(dst, k)
		if errors.Is(err, geo.ErrInvalidGeometry) {
			// The overlap rounds to less than one pixel.
			m.log.Debug("source skipped", zap.String("source", e.Name), zap.Stringer("key", k), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("paint %s: %w", e.Name, err)
		}
	}

	var buf bytes.Buffer
	if err := m.driver.Encode(&buf, dst, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
