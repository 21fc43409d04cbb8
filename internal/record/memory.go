// internal/record/memory.go
//
// In-memory implementation of the record Store interface.
// Used in tests and when durability is not required.
//
// Characteristics:
//   - Stores encoded envelopes keyed by record key in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package record

import (
	"context"
	"sync"
)

// memory is a map-based Store implementation.
type memory struct {
	mu      sync.RWMutex      // guards records map
	records map[string][]byte // encoded envelopes keyed by record key
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{records: make(map[string][]byte)}
}

// Save encodes and stores the record in the map.
func (m *memory) Save(ctx context.Context, key string, v any) error {
	raw, err := encode(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = raw
	return nil
}

// Load looks up and decodes a record by key.
func (m *memory) Load(ctx context.Context, key string, out any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.records[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return decode(key, raw, out), nil
}

// Delete removes the record at key.
func (m *memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
