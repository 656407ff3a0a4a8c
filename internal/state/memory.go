package state

import (
	"context"
	"sync"
)

// Memory is an in-process Store used when no database path is configured.
type Memory struct {
	mu     sync.Mutex
	items  map[string]string
	orders map[string]OrderRecord
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string), orders: make(map[string]OrderRecord)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.items[key]
	return val, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) LookupOrder(_ context.Context, venue, clientOrderID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.orders[venue+"/"+clientOrderID]
	return rec.OrderID, ok, nil
}

func (m *Memory) RecordOrder(_ context.Context, rec OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[rec.Venue+"/"+rec.ClientOrderID] = rec
	return nil
}

func (m *Memory) Close() error { return nil }
