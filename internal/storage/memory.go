package storage

import (
	"context"
	"sync"
)

// MemorySlot keeps slot values in process memory. Values are lost on exit.
type MemorySlot struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMemorySlot creates an empty in-memory slot, optionally seeded with values
func NewMemorySlot(seed map[string]string) *MemorySlot {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemorySlot{values: values}
}

// Get returns the value stored under key
func (m *MemorySlot) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

// Set replaces the value stored under key
func (m *MemorySlot) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}
