package store

import (
	"context"
	"sync"
)

type InMemoryDocumentCache struct {
	entries map[string][]byte
	mu      sync.RWMutex
}

func NewInMemoryDocumentCache() *InMemoryDocumentCache {
	return &InMemoryDocumentCache{
		entries: make(map[string][]byte),
	}
}

func (m *InMemoryDocumentCache) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *InMemoryDocumentCache) SetValue(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *InMemoryDocumentCache) GetValue(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}
