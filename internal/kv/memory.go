package kv

import (
	"context"
	"sync"
)

// MemoryArea хранилище в памяти процесса, используется в тестах и для режима без диска
type MemoryArea struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryArea() *MemoryArea {
	return &MemoryArea{values: make(map[string][]byte)}
}

func (m *MemoryArea) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MemoryArea) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryArea) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
