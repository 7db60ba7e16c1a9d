// Package cache provides the caller-side resource cache the codec layer
// deliberately does not have: a concurrent map keyed by runtime ID with
// check-then-insert discipline, so parallel consumers never repeat a
// decompression or conversion for the same resource.
package cache

import "sync"

// Cache is a read/write-locked map with fill-once semantics.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New returns an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

// Get returns the cached value for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrFill returns the cached value for key, computing and inserting it
// with fill when absent. The presence test takes only a read lock; under
// the write lock the map is re-checked, since another goroutine may have
// filled the entry while the lock was being acquired. A failed fill
// caches nothing.
func (c *Cache[K, V]) GetOrFill(key K, fill func() (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	v, err := fill()
	if err != nil {
		return v, err
	}
	c.entries[key] = v
	return v, nil
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
