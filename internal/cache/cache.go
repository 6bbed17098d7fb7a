// Package cache holds recomputable analysis results for a short time and
// makes sure concurrent requests for the same key compute it once.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache stores values under string keys until their TTL runs out.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Put(key string, value V, ttl time.Duration)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats counts lookups.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// TTLCache is an in-memory Cache. Expired entries are dropped lazily on read
// and by Purge. When full, the entry closest to expiry is evicted.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	maxSize int
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewTTLCache creates a cache holding at most maxSize entries; zero means
// unbounded.
func NewTTLCache[V any](maxSize int) *TTLCache[V] {
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return e.value, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	// another writer may have refreshed it since the read lock was released
	if cur, still := c.entries[key]; ok && still && !c.now().Before(cur.expiresAt) {
		delete(c.entries, key)
	}
	var zero V
	return zero, false
}

func (c *TTLCache[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Invalidate removes key.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops every expired entry and returns how many were removed.
func (c *TTLCache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

func (c *TTLCache[V]) evictLocked() {
	var oldest string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldest == "" || e.expiresAt.Before(oldestAt) {
			oldest, oldestAt = k, e.expiresAt
		}
	}
	delete(c.entries, oldest)
}

// Loader computes missing values at most once per key at a time. A caller
// that asks for a key already being computed waits for that result.
type Loader[V any] struct {
	cache Cache[V]
	ttl   time.Duration
	group singleflight.Group
}

func NewLoader[V any](c Cache[V], ttl time.Duration) *Loader[V] {
	return &Loader[V]{cache: c, ttl: ttl}
}

// Load returns the cached value for key, or runs fn and caches its result.
// Errors are not cached. The bool reports whether the value came from the
// cache or from a computation shared with another caller.
func (l *Loader[V]) Load(key string, fn func() (V, error)) (V, bool, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	v, err, shared := l.group.Do(key, func() (interface{}, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		l.cache.Put(key, v, l.ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v.(V), shared, nil
}
