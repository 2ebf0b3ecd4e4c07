// Package cache is the process-wide query cache. Entries are keyed by
// scope key (see Keys) and only ever change through Fetch filling a miss
// or Invalidate dropping an entry: mutation results are never written in
// directly, so the gateway stays the single source of truth.
package cache

import (
	"context"
	"sync"
)

// Cache holds fetched collection snapshots plus the invalidation
// triggers mounted views register to know when to re-fetch.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]any
	triggers map[string]map[int]func(string)
	nextID   int
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries:  make(map[string]any),
		triggers: make(map[string]map[int]func(string)),
	}
}

// Fetch returns the cached value for key, running fill on a miss and
// storing the result. A fill error is returned without caching anything,
// so the next Fetch retries.
func Fetch[T any](ctx context.Context, c *Cache, key string, fill func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	} else {
		c.mu.Unlock()
	}

	v, err := fill(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
	return v, nil
}

// Peek returns the cached value without filling. Used by checks that must
// consult only already-fetched state (the membership duplicate guard).
func Peek[T any](c *Cache, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Invalidate drops the entry for key and fires its triggers. Idempotent:
// invalidating an absent key still fires triggers and is otherwise a
// no-op, so a late response landing after its view unmounted is harmless.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	fns := make([]func(string), 0, len(c.triggers[key]))
	for _, fn := range c.triggers[key] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}

// OnInvalidate registers a trigger for key. The returned func removes it;
// views call it on teardown.
func (c *Cache) OnInvalidate(key string, fn func(string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.triggers[key] == nil {
		c.triggers[key] = make(map[int]func(string))
	}
	id := c.nextID
	c.nextID++
	c.triggers[key][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.triggers[key], id)
	}
}
