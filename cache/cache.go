package cache

import (
	"sync"
	"time"
)

// entry pairs a stored value with its expiry deadline.
// Entries never leave the cache; callers only ever see the value.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a generic key-value store with a per-entry time to live.
// A Get never returns an expired value; expired entries are removed
// lazily on lookup and proactively by Sweep.
//
// Cache is safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	store map[K]entry[V]
	now   func() time.Time
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithClock replaces the cache's time source.
// Used by tests to control entry expiry deterministically.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		store: make(map[K]entry[V]),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key and true, or the zero value and
// false on a miss. An expired entry is treated as a miss and evicted.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.store, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key for the given time to live.
// A non-positive ttl stores an already-expired entry, which the next
// Get will treat as a miss.
func (c *Cache[K, V]) Put(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[K]entry[V])
}

// Sweep removes every expired entry and returns the number removed.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, key)
			removed++
		}
	}
	return removed
}
