// Package cache provides a fixed-capacity memoization cache with
// least-recently-used eviction.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Bounded is a fixed-capacity key/value cache. Get promotes the key to
// most recently used; Set evicts the least recently used entry when the
// cache is full and the key is new. Eviction is pure access order, not
// frequency based.
//
// All methods are safe for concurrent use.
type Bounded[K comparable, V any] struct {
	c *lru.Cache[K, V]
}

// New creates a cache holding at most capacity entries. Capacities
// below 1 are clamped to 1.
func New[K comparable, V any](capacity int) *Bounded[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	c, err := lru.New[K, V](capacity)
	if err != nil {
		// Unreachable: lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Bounded[K, V]{c: c}
}

// Get returns the value for key and promotes it to most recently used.
func (b *Bounded[K, V]) Get(key K) (V, bool) {
	return b.c.Get(key)
}

// Set stores the value for key, evicting the least recently used entry
// if the cache is at capacity and the key is new. It reports whether an
// eviction occurred.
func (b *Bounded[K, V]) Set(key K, value V) bool {
	return b.c.Add(key, value)
}

// Contains reports whether key is cached without promoting it.
func (b *Bounded[K, V]) Contains(key K) bool {
	return b.c.Contains(key)
}

// Len returns the number of cached entries.
func (b *Bounded[K, V]) Len() int {
	return b.c.Len()
}

// Purge removes all entries.
func (b *Bounded[K, V]) Purge() {
	b.c.Purge()
}
