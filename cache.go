package compose

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cachedValue struct {
	key   string
	label string
	value any
}

// instanceCache stores constructed values of one lifetime bucket and records
// their construction order for disposal. Caches of one context tree share a
// waitGraph.
type instanceCache struct {
	mu     sync.RWMutex
	values map[string]any
	order  []cachedValue
	closed bool
	flight singleflight.Group
	waits  *waitGraph
}

func newInstanceCache(waits *waitGraph) *instanceCache {
	return &instanceCache{values: make(map[string]any, 16), waits: waits}
}

func (c *instanceCache) lookup(key string) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, ErrContainerDisposed
	}
	v, ok := c.values[key]
	return v, ok, nil
}

// getOrCreate returns the value cached under key or constructs it exactly
// once. Concurrent first callers share the single construction; a waiter
// whose ctx ends gives up with ctx.Err() while the construction carries on.
// No lock is held while create runs. waiter is the construction path of the
// caller; waiting on a construction that itself waits on the caller fails
// with CyclicDependencyError.
func (c *instanceCache) getOrCreate(ctx context.Context, waiter *chain, key, label string, create func() (any, error), release func(cachedValue)) (any, error) {
	if v, ok, err := c.lookup(key); err != nil || ok {
		return v, err
	}

	done, err := c.waits.wait(waiter, flightID{cache: c, key: key}, label)
	if err != nil {
		return nil, err
	}
	defer done()

	ch := c.flight.DoChan(key, func() (v any, err error) {
		if v, ok, err := c.lookup(key); err != nil || ok {
			return v, err
		}
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, &InitializationError{Type: label, Err: fmt.Errorf("panic: %v", r)}
			}
		}()

		v, err = create()
		if err != nil {
			return nil, err
		}

		cv := cachedValue{key: key, label: label, value: v}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			release(cv)
			return nil, ErrContainerDisposed
		}
		c.values[key] = v
		c.order = append(c.order, cv)
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// close marks the cache as disposed and returns its values in reverse
// construction order. Subsequent calls return nothing.
func (c *instanceCache) close() []cachedValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	vals := c.order
	c.order = nil
	c.values = make(map[string]any)
	slices.Reverse(vals)
	return vals
}

func (c *instanceCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// flightID names one in-flight construction: a key within a cache.
type flightID struct {
	cache *instanceCache
	key   string
}

type waitEdge struct {
	target flightID
	label  string
}

// waitGraph records which shared construction each running construction is
// blocked on. Cycles through goroutines that each own one construction of
// the cycle are invisible to a single chain and are found here instead.
type waitGraph struct {
	mu      sync.Mutex
	waiting map[flightID]waitEdge
}

func newWaitGraph() *waitGraph {
	return &waitGraph{waiting: make(map[flightID]waitEdge)}
}

// wait records that the construction owning waiter blocks on target, unless
// target already waits, directly or transitively, on that construction. The
// returned func removes the record.
func (g *waitGraph) wait(waiter *chain, target flightID, label string) (func(), error) {
	self, ok := waiter.flight()
	if !ok {
		return func() {}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	path := []string{label}
	for f, hops := target, 0; hops <= len(g.waiting); hops++ {
		if f == self {
			return nil, &CyclicDependencyError{Chain: append(waiter.path(), path...)}
		}
		e, ok := g.waiting[f]
		if !ok {
			break
		}
		path = append(path, e.label)
		f = e.target
	}

	edge := waitEdge{target: target, label: label}
	g.waiting[self] = edge
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.waiting[self] == edge {
			delete(g.waiting, self)
		}
	}, nil
}
