package cache

import (
	"context"
	"sync"
)

// MemoryCache is an in-memory cache implementation.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache creates a new, empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]byte),
	}
}

// Get retrieves a copy of a stored value. Returns (nil, false) on miss.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return clone(value), true
}

// Put stores a copy of value under key, overwriting any previous entry.
func (c *MemoryCache) Put(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key] = clone(value)
	c.mu.Unlock()

	return nil
}

// Reset drops every entry.
func (c *MemoryCache) Reset(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
