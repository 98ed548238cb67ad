package cache

import (
	"sync"
	"time"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
)

// entry is one cached value with its expiry
type entry struct {
	value     any
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache implementing the Cache port.
// Expired entries are dropped lazily on read and wholesale whenever the map
// grows past a cleanup threshold.
type MemoryCache struct {
	mu           sync.RWMutex
	entries      map[string]entry
	timeProvider core.TimeProvider
	cleanupAt    int
}

// NewMemoryCache creates a TTL cache
func NewMemoryCache(timeProvider core.TimeProvider) *MemoryCache {
	return &MemoryCache{
		entries:      make(map[string]entry),
		timeProvider: timeProvider,
		cleanupAt:    1024,
	}
}

// Get returns the live value for a key
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.After(c.timeProvider.Now()) {
		c.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value with a TTL
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	now := c.timeProvider.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.cleanupAt {
		for k, e := range c.entries {
			if !e.expiresAt.After(now) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

// Delete removes an entry
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
