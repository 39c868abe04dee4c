package state

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a process-local backend for tests. It satisfies both the
// sequence and the order-number contracts.
type Memory struct {
	mu     sync.RWMutex
	id     int64
	orders map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{orders: make(map[string]struct{})}
}

func (m *Memory) Current(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == 0 {
		m.id = 1
	}
	return m.id, nil
}

func (m *Memory) Advance(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == 0 {
		m.id = 1
	}
	m.id++
	return nil
}

func (m *Memory) IsUnique(ctx context.Context, orderNumber string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.orders[orderNumber]
	return !ok, nil
}

func (m *Memory) Record(ctx context.Context, orderNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderNumber]; ok {
		return fmt.Errorf("order number %s: %w", orderNumber, ErrConflict)
	}
	m.orders[orderNumber] = struct{}{}
	return nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders), nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
