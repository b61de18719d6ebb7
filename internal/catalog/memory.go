package catalog

import (
	"context"
	"sync"

	"github.com/kiesman99/tilecut/pkg/keyspace"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

// Memory keeps tiles in process memory. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu    sync.RWMutex
	tiles map[raster.Format]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{tiles: make(map[raster.Format]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, k tile.Key, f raster.Format) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.tiles[f][tile.ToKeyspace(k).String()]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *Memory) Put(_ context.Context, k tile.Key, f raster.Format, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.tiles[f]
	if !ok {
		byKey = make(map[string][]byte)
		m.tiles[f] = byKey
	}
	byKey[tile.ToKeyspace(k).String()] = append([]byte(nil), data...)
	return nil
}

// keys decodes every stored key, whatever its format.
func (m *Memory) keys() ([]tile.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []tile.Key
	for _, byKey := range m.tiles {
		for s := range byKey {
			ks, err := keyspace.Parse(s)
			if err != nil {
				return nil, err
			}
			k, err := tile.FromKeyspace(ks)
			if err != nil {
				return nil, err
			}
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *Memory) Zooms(_ context.Context) ([]uint32, error) {
	return m.collect(func(k tile.Key) (uint32, bool) { return k.Zoom, true })
}

func (m *Memory) Columns(_ context.Context, zoom uint32) ([]uint32, error) {
	return m.collect(func(k tile.Key) (uint32, bool) { return k.X, k.Zoom == zoom })
}

func (m *Memory) Rows(_ context.Context, zoom uint32) ([]uint32, error) {
	return m.collect(func(k tile.Key) (uint32, bool) { return k.Y, k.Zoom == zoom })
}

func (m *Memory) collect(pick func(tile.Key) (uint32, bool)) ([]uint32, error) {
	keys, err := m.keys()
	if err != nil {
		return nil, err
	}
	set := make(map[uint32]struct{})
	for _, k := range keys {
		if v, ok := pick(k); ok {
			set[v] = struct{}{}
		}
	}
	return sorted(set), nil
}
