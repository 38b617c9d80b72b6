// Package cache implements a simple in-memory key-value cache with
// time-to-live expiration.
package cache

import (
	"sync"
	"time"
)

// Cache is a TTL map safe for concurrent use. The zero value is not usable;
// create one with [New].
type Cache[K comparable, V any] struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[K]entry[V]
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// New creates a cache whose entries expire ttl after they are stored.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the value for key if it is present and hasn't expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value for key, resetting its expiration.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: time.Now()}
}

// Clear drops all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Info describes the cache state for diagnostics.
type Info struct {
	TTL       time.Duration
	Len       int
	OldestAge time.Duration // zero when empty
}

// Info reports the cache TTL, the number of live entries and the age of the
// oldest one. Expired entries are dropped along the way.
func (c *Cache[K, V]) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	info := Info{TTL: c.ttl}
	for k, e := range c.entries {
		age := now.Sub(e.storedAt)
		if age > c.ttl {
			delete(c.entries, k)
			continue
		}
		info.Len++
		if age > info.OldestAge {
			info.OldestAge = age
		}
	}
	return info
}
