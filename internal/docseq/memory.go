package docseq

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is a Store over code lists supplied by the caller. In-memory
// repositories use it to share the allocator with the PostgreSQL path.
type MemoryStore struct {
	lookup func(Series) []string

	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryStore returns a store reading issued codes through lookup.
func NewMemoryStore(lookup func(Series) []string) *MemoryStore {
	return &MemoryStore{lookup: lookup, counters: make(map[string]int64)}
}

// Codes implements Store.
func (m *MemoryStore) Codes(ctx context.Context, s Series) ([]string, error) {
	var out []string
	for _, c := range m.lookup(s) {
		if c == "" || (s.Format.Scoped && !strings.HasPrefix(c, s.Format.Prefix)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Exists implements Store.
func (m *MemoryStore) Exists(ctx context.Context, s Series, code string) (bool, error) {
	for _, c := range m.lookup(s) {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

// Bump implements Store.
func (m *MemoryStore) Bump(ctx context.Context, key string, floor int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := floor
	if current, ok := m.counters[key]; ok && current+1 > next {
		next = current + 1
	}
	m.counters[key] = next
	return next, nil
}

// Peek implements Store.
func (m *MemoryStore) Peek(ctx context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.counters[key]
	return v, ok, nil
}
