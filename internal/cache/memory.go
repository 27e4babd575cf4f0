package cache

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value      []byte
	expiration int64 // unix nanos; 0 means no expiry
}

// Memory is a thread-safe in-process cache with lazy TTL expiry. It backs
// tests and deployments that run without a shared cache backend.
type Memory struct {
	mu    sync.RWMutex
	items map[string]item
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]item)}
}

// Get returns the value for key, expiring it lazily if its TTL has passed.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores forever.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	m.mu.Lock()
	m.items[key] = item{value: value, expiration: exp}
	m.mu.Unlock()
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}
