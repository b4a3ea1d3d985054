package store

import (
	"context"
	"sync"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
)

// MemoryGateway is a concurrency-safe in-memory measurement.Gateway. It
// enforces the same dedup-key uniqueness as the Mongo gateway and is used
// by tests and local inspection runs.
type MemoryGateway struct {
	mu sync.RWMutex

	// key: measurement dedup key
	data map[string]measurement.Measurement
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		data: make(map[string]measurement.Measurement),
	}
}

// EnsureSchema is a no-op; uniqueness is enforced by the backing map.
func (g *MemoryGateway) EnsureSchema(ctx context.Context) error {
	return nil
}

// WriteBatch stores each measurement under its dedup key. Keys already
// present are absorbed silently; the count covers new records only.
func (g *MemoryGateway) WriteBatch(ctx context.Context, sourceName string, measurements []measurement.Measurement) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inserted := 0
	for _, m := range measurements {
		key := m.DedupKey()
		if _, ok := g.data[key]; ok {
			continue
		}
		g.data[key] = m
		inserted++
	}
	return inserted, nil
}

// Count returns the number of stored measurements.
func (g *MemoryGateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.data)
}

// All returns a copy of every stored measurement, in no particular order.
func (g *MemoryGateway) All() []measurement.Measurement {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]measurement.Measurement, 0, len(g.data))
	for _, m := range g.data {
		out = append(out, m)
	}
	return out
}
