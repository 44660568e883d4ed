package store

import (
	"context"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Memory is a process-local Store.
type Memory struct {
	values cmap.ConcurrentMap[string, string]
}

func NewMemory() *Memory {
	return &Memory{values: cmap.New[string]()}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := m.values.Get(key)
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.values.Set(key, value)
	return nil
}
