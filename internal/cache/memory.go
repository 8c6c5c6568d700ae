package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps recent responses in process memory so a resubmitted
// text in the web UI never reaches the grammar service twice
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache; cleanupInterval controls how often expired responses are evicted
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	body, ok := v.([]byte)
	return body, ok
}

// Set stores a response; ttl 0 uses the default
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

// Len returns the number of cached responses, including expired ones not yet evicted
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}
