// Package cache keeps short-lived command results in memory, keyed by idempotency token.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// CleanupInterval is how often expired entries are removed.
	CleanupInterval = 30 * time.Second
	// DefaultTTL is used when the configuration leaves the TTL unset.
	DefaultTTL = 10 * time.Minute
)

// Cache wraps go-cache with a fixed per-item TTL. A zero TTL disables caching.
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New creates an in-memory cache. If ttl is 0, Set is a no-op and Get always misses.
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, CleanupInterval),
		ttl:   ttl,
	}
}

// Set stores value under key for the configured TTL.
func (c *Cache) Set(key string, value interface{}) {
	if c.ttl <= 0 {
		return
	}

	c.store.Set(key, value, c.ttl)
}

// Get returns the value and true if key is present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	return c.store.Get(key)
}

// IsEnabled reports whether the TTL allows caching.
func (c *Cache) IsEnabled() bool {
	return c.ttl > 0
}

// TTL returns the configured item lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Len returns the number of stored items, including expired ones not yet cleaned up.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Clear removes all items.
func (c *Cache) Clear() {
	c.store.Flush()
}
