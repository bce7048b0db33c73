// Package cache provides a generic TTL cache with read-through loading
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc produces the value for a missing or expired key
type LoaderFunc[T any] func(ctx context.Context) (T, error)

// item wraps a cached value with its expiration time
type item[T any] struct {
	value      T
	generation uint64
	createdAt  time.Time
	expiresAt  time.Time
}

// Cache is a generic thread-safe cache with TTL expiration
type Cache[T any] struct {
	items       map[string]item[T]
	generations map[string]uint64
	mu          sync.RWMutex
	ttl         time.Duration
	now         func() time.Time
	flights     singleflight.Group
	stop        chan struct{}
	closeOnce   sync.Once
}

// Option customizes a Cache
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a cache with the specified TTL
func New[T any](ttl time.Duration, opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[T]{
		items:       make(map[string]item[T]),
		generations: make(map[string]uint64),
		ttl:         ttl,
		now:         o.now,
		stop:        make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanup()
	}
	return c
}

// TTL returns the lifetime of a stored entry
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get retrieves a value, returning (value, true) if found and not expired
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || !c.now().Before(item.expiresAt) {
		var zero T
		return zero, false
	}
	return item.value, true
}

// Set stores a value with the cache's TTL and returns its generation
func (c *Cache[T]) Set(key string, value T) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.generations[key]++
	gen := c.generations[key]
	c.items[key] = item[T]{
		value:      value,
		generation: gen,
		createdAt:  now,
		expiresAt:  now.Add(c.ttl),
	}
	return gen
}

// GetOrLoad returns the live entry for key, or calls loader to produce one.
// Concurrent misses for the same key share a single loader call. A loader
// error is handed to every waiter and is never stored, so the next call
// retries.
//
// The loader runs detached from ctx cancellation: a caller that gives up
// returns ctx.Err() right away while the shared load finishes for the rest.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key string, loader LoaderFunc[T]) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		// another flight may have stored it between our Get and DoChan
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Generation returns how many times key has been stored (0 if never)
func (c *Cache[T]) Generation(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[key]
}

// Age returns how long ago the live entry for key was stored
func (c *Cache[T]) Age(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	now := c.now()
	if !exists || !now.Before(item.expiresAt) {
		return 0, false
	}
	return now.Sub(item.createdAt), true
}

// Delete removes a key from the cache
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item[T])
}

// Size returns the number of items (including expired)
func (c *Cache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background cleanup goroutine
func (c *Cache[T]) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup runs periodically to remove expired items
func (c *Cache[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[T]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
}
