// Package cache provides a read-through cache keyed by string.
package cache

import (
	"sync"
)

// LoadFunc constructs the value for a key on first access.
type LoadFunc func(key string) (interface{}, error)

// Cache interface defines the operations for a read-through cache,
// allowing values to be lazily constructed on first access, retrieved,
// enumerated, and invalidated.
type Cache interface {
	Get(key string) (interface{}, error) // Retrieve an item, loading it if absent
	Contains(key string) bool            // Report whether an item is already loaded
	Keys() []string                      // Enumerate the keys of loaded items
	Delete(key string)                   // Invalidate a single item
	Clear()                              // Invalidate all items
}

// cache implements the Cache interface. It uses a map for lookup and a
// mutex to protect concurrent access. The mutex is held across loads, so
// a value is constructed at most once per key.
type cache struct {
	mu     sync.Mutex
	load   LoadFunc
	values map[string]interface{}
}

// NewCache initializes and returns a new cache that constructs missing
// values with the provided load function.
func NewCache(load LoadFunc) Cache {
	return &cache{
		load:   load,
		values: make(map[string]interface{}),
	}
}

// Get returns the cached value for key, constructing and caching it on
// first access. A failed load is not cached, so a subsequent Get retries
// the load.
func (c *cache) Get(key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok := c.values[key]; ok {
		return value, nil
	}

	value, err := c.load(key)
	if err != nil {
		return nil, err
	}

	c.values[key] = value
	return value, nil
}

// Contains reports whether a value for key has been loaded.
func (c *cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.values[key]
	return ok
}

// Keys returns the keys of all loaded values, in no particular order.
func (c *cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	return keys
}

// Delete removes the value for key, if any. The next Get for the key
// loads a fresh value.
func (c *cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, key)
}

// Clear removes all values, resetting the cache to an empty state.
func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = make(map[string]interface{})
}
