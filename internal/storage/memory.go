package storage

import (
	"context"
	"sync"
)

// Memory is a map-backed Backend for tests and embedding.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte

	// FailNextSet, when set, is returned by the next Set call and then
	// cleared. Lets tests exercise persist-failure paths.
	FailNextSet error
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

// Get implements Backend.
func (m *Memory) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.items[k]; ok {
			cp := make([]byte, len(v))
			copy(cp, v)
			out[k] = cp
		}
	}
	return out, nil
}

// Set implements Backend.
func (m *Memory) Set(ctx context.Context, items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailNextSet; err != nil {
		m.FailNextSet = nil
		return err
	}
	for k, v := range items {
		cp := make([]byte, len(v))
		copy(cp, v)
		m.items[k] = cp
	}
	return nil
}

// Remove implements Backend.
func (m *Memory) Remove(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Keys returns all stored keys, in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.items))
	for k := range m.items {
		out = append(out, k)
	}
	return out
}
