package services

import (
	"sync"
	"time"
)

// StatsCache memoizes the reporting category counts behind a TTL. The clock
// is injected so tests control expiry; the cache is owned by whichever
// reporting handler uses it, not a process global.
type StatsCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	counts   map[string]int
	loadedAt time.Time
}

// NewStatsCache builds a cache with the given TTL. A nil clock defaults to
// time.Now.
func NewStatsCache(ttl time.Duration, clock func() time.Time) *StatsCache {
	if clock == nil {
		clock = time.Now
	}
	return &StatsCache{ttl: ttl, now: clock}
}

// Counts returns the cached counts, calling load only when the cached value
// is missing or older than the TTL.
func (c *StatsCache) Counts(load func() (map[string]int, error)) (map[string]int, error) {
	c.mu.RLock()
	if c.counts != nil && c.now().Sub(c.loadedAt) < c.ttl {
		counts := c.counts
		c.mu.RUnlock()
		return counts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the write lock; another goroutine may have refreshed.
	if c.counts != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.counts, nil
	}

	counts, err := load()
	if err != nil {
		return nil, err
	}
	c.counts = counts
	c.loadedAt = c.now()
	return counts, nil
}

// Invalidate drops the cached value.
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = nil
}
