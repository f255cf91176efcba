// Package cache holds the last successfully extracted lift status.
// It is the answer for every path that does not complete a fresh
// fetch: backoff rejections, after-hours queries, and every flavor of
// retrieval or extraction failure.
package cache

import (
	"sync"
	"time"

	"liftwatch/lib/liftwatch/extract"
)

// Cache is a single last-known-good value. No TTL, no eviction, no
// persistence; the only invalidation is the next successful Set.
type Cache struct {
	mu        sync.RWMutex
	value     extract.StatusMap
	updatedAt time.Time
}

func New() *Cache {
	return &Cache{value: extract.StatusMap{}}
}

// Get returns the current best-known value. Before the first Set it
// is an empty, non-nil map. Callers must treat the result as
// immutable.
func (c *Cache) Get() extract.StatusMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set overwrites the cached value wholesale. Only call it with the
// result of a successful extraction; a failure never clears the cache.
func (c *Cache) Set(value extract.StatusMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.updatedAt = time.Now()
}

// Age reports how stale the cached value is. ok is false before the
// first successful Set, which upstream operators should read as "the
// source has never been reached".
func (c *Cache) Age(now time.Time) (age time.Duration, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.updatedAt.IsZero() {
		return 0, false
	}
	return now.Sub(c.updatedAt), true
}
