// Package cache memoizes geometry and materials that are expensive to build
// and safe to share between visual proxies.
//
// Entries are reference counted but never evicted while the session runs;
// Dispose tears everything down at shutdown.
package cache

import (
	"sync"

	"github.com/chazu/nodescope/pkg/metrics"
)

// Stats reports lookup counters for a cache.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

type entry[V any] struct {
	value V
	refs  int
}

// Cache is a memo table keyed by a comparable value. The factory for a key
// runs at most once while the entry exists, and every lookup of that key
// returns the same instance.
type Cache[K comparable, V any] struct {
	name    string
	mu      sync.Mutex
	entries map[K]*entry[V]
	stats   Stats
}

// New returns an empty cache. name labels its metrics.
func New[K comparable, V any](name string) *Cache[K, V] {
	return &Cache[K, V]{name: name, entries: make(map[K]*entry[V])}
}

// GetOrCreate returns the cached value for key, calling factory on a miss.
// Factory errors are returned and not cached. The factory runs under the
// cache lock and must not call back into the same cache.
func (c *Cache[K, V]) GetOrCreate(key K, factory func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.lookup(key, factory)
	if err != nil {
		var zero V
		return zero, err
	}
	return e.value, nil
}

// Acquire is GetOrCreate plus one reference on the entry.
func (c *Cache[K, V]) Acquire(key K, factory func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.lookup(key, factory)
	if err != nil {
		var zero V
		return zero, err
	}
	e.refs++
	return e.value, nil
}

func (c *Cache[K, V]) lookup(key K, factory func() (V, error)) (*entry[V], error) {
	if e, ok := c.entries[key]; ok {
		c.stats.Hits++
		metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
		return e, nil
	}
	c.stats.Misses++
	metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
	v, err := factory()
	if err != nil {
		return nil, err
	}
	e := &entry[V]{value: v}
	c.entries[key] = e
	return e, nil
}

// Release drops one reference and returns the references left. The entry
// stays cached at zero. Unknown keys return -1.
func (c *Cache[K, V]) Release(key K) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return -1
	}
	if e.refs > 0 {
		e.refs--
	}
	return e.refs
}

// Get returns the cached value without creating one.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Refs returns the reference count for key, or 0 when absent.
func (c *Cache[K, V]) Refs(key K) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the lookup counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Each calls fn for every entry. fn must not call back into the cache.
func (c *Cache[K, V]) Each(fn func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		fn(k, e.value)
	}
}

// Dispose empties the cache, calling fn (if non-nil) on every value.
func (c *Cache[K, V]) Dispose(fn func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if fn != nil {
			fn(k, e.value)
		}
	}
	c.entries = make(map[K]*entry[V])
}
