// Package cache holds decoded phenotypes for reuse across the units of one chunk.
package cache

import (
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache maps genome ids to decoded phenotypes. Entries are written once and never replaced;
// concurrent first lookups of the same id share a single compute call. Failed computes are
// not cached.
type Cache[T any] struct {
	entries sync.Map
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	size   atomic.Int64
}

func New[T any]() *Cache[T] {
	return &Cache[T]{}
}

func (c *Cache[T]) Get(id int64) (T, bool) {
	v, ok := c.entries.Load(id)
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// GetOrInsert returns the cached phenotype for id, computing and storing it on first use.
func (c *Cache[T]) GetOrInsert(id int64, compute func() (T, error)) (T, error) {
	if v, ok := c.Get(id); ok {
		c.hits.Add(1)
		return v, nil
	}

	v, err, shared := c.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		if v, ok := c.entries.Load(id); ok {
			return v, nil
		}
		computed, err := compute()
		if err != nil {
			return nil, err
		}
		actual, loaded := c.entries.LoadOrStore(id, computed)
		if !loaded {
			c.size.Add(1)
		}
		return actual, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v.(T), nil
}

func (c *Cache[T]) Len() int {
	return int(c.size.Load())
}

// Stats reports lookups served from the cache and lookups that ran compute.
func (c *Cache[T]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
