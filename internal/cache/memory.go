package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	order     Order
	expiresAt time.Time
}

// Memory is an in-process OrderStore. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultOrderTTL
	}
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[int64]memoryEntry)}
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Memory) Get(_ context.Context, bookingID int64) (Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[bookingID]
	if !ok {
		return Order{}, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, bookingID)
		return Order{}, false, nil
	}
	return e.order, true, nil
}

func (m *Memory) Set(_ context.Context, bookingID int64, order Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	m.entries[bookingID] = memoryEntry{order: order, expiresAt: order.CreatedAt.Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, bookingID int64) error {
	m.mu.Lock()
	delete(m.entries, bookingID)
	m.mu.Unlock()
	return nil
}
