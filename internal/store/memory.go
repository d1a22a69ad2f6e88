package store

import (
	"context"
	"sync"
)

// Memory is a process-local KV. Two components sharing one Memory behave like two
// browser tabs sharing local storage.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	feed   Feed
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.feed.Publish(Change{Key: key, Value: value})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()
	if existed {
		m.feed.Publish(Change{Key: key, Deleted: true})
	}
	return nil
}

func (m *Memory) Watch(ctx context.Context, keys ...string) (<-chan Change, error) {
	return m.feed.Subscribe(ctx, keys), nil
}
