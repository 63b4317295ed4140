package schema

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cached memoizes another Introspector. Concurrent lookups of the same name
// share one underlying call. Failed lookups are not cached.
type Cached struct {
	next  Introspector
	group singleflight.Group

	mu       sync.RWMutex
	entities map[string]Entity
}

// NewCached wraps next.
func NewCached(next Introspector) *Cached {
	return &Cached{
		next:     next,
		entities: make(map[string]Entity),
	}
}

// Describe implements Introspector.
func (c *Cached) Describe(ctx context.Context, name string) (Entity, error) {
	c.mu.RLock()
	e, ok := c.entities[name]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		e, err := c.next.Describe(ctx, name)
		if err != nil {
			return Entity{}, err
		}
		c.mu.Lock()
		c.entities[name] = e
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return Entity{}, err
	}
	return v.(Entity), nil
}

// Preload describes names concurrently and caches the results.
// It returns the first error encountered.
func (c *Cached) Preload(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range names {
		g.Go(func() error {
			_, err := c.Describe(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// Len returns the number of cached entities.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}
