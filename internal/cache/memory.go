package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process tier of the retrieval cache
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache creates a memory cache; expired entries are purged at
// half the default TTL
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	purge := defaultTTL / 2
	if purge < time.Minute {
		purge = time.Minute
	}
	return &MemoryCache{entries: gocache.New(defaultTTL, purge)}
}

// Get retrieves a cached value by key
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.entries.Get(key)
	if !found {
		return nil, false
	}
	return val.([]byte), true
}

// Set stores a value under key (ttl 0 = cache default)
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.entries.Set(key, value, ttl)
	return nil
}

// Delete removes a key
func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

// Clear drops every entry
func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}

// Len reports the number of live entries, expired ones included until purge
func (c *MemoryCache) Len() int {
	return c.entries.ItemCount()
}
