package statuscache

import (
	"context"
	"sync"
	"time"
)

// memConn is an in-process, dependency-free conn used by NewForTesting.
type memConn struct {
	mu    sync.Mutex
	store map[string]string
}

func (m *memConn) set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return nil
}

func (m *memConn) get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	return v, ok, nil
}

func (m *memConn) close() {}

// NewForTesting returns a Cache backed by an in-memory map instead of a
// real Valkey connection, for tests in other packages that need a
// working Status Cache without network access.
func NewForTesting() *Cache {
	return &Cache{conn: &memConn{store: make(map[string]string)}, ttl: DefaultTTL}
}
