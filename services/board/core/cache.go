package core

import (
	"context"
	"fmt"
	"sync"
)

// Loader reads the server copy of one cache entry.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	val         V
	has         bool
	stale       bool
	speculative bool // val is a write not yet confirmed by the server

	load   Loader[V]
	gen    uint64 // bumped by every load start and every cancel
	cancel context.CancelFunc
}

// Cache is a keyed client-side copy of server state. Values handed out are
// clones, so callers never alias what the cache holds.
type Cache[V any] struct {
	mu      sync.Mutex
	clone   func(V) V
	entries map[string]*entry[V]
}

func NewCache[V any](clone func(V) V) *Cache[V] {
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Cache[V]{clone: clone, entries: map[string]*entry[V]{}}
}

func (c *Cache[V]) entry(key string) *entry[V] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	return e
}

// Get returns the cached value, fresh or not, without loading.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.has {
		var zero V
		return zero, false
	}
	return c.clone(e.val), true
}

// Fetch returns the cached value unless it is missing or stale, in which
// case load runs and its result is stored. load is remembered for Refresh.
// A speculative value is served as is until its mutation settles.
// A load superseded by CancelQueries or by a newer load returns
// ErrQueryCancelled and stores nothing.
func (c *Cache[V]) Fetch(ctx context.Context, key string, load Loader[V]) (V, error) {
	c.mu.Lock()
	e := c.entry(key)
	if load != nil {
		e.load = load
	}
	if e.has && (!e.stale || e.speculative) {
		v := c.clone(e.val)
		c.mu.Unlock()
		return v, nil
	}
	if e.load == nil {
		c.mu.Unlock()
		var zero V
		return zero, fmt.Errorf("%w: no loader for %q", ErrInvalidArgs, key)
	}
	return c.start(ctx, key, e)
}

// Refresh reloads key with its remembered loader. Keys never fetched have
// nothing to refresh.
func (c *Cache[V]) Refresh(ctx context.Context, key string) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.load == nil {
		c.mu.Unlock()
		return nil
	}
	_, err := c.start(ctx, key, e)
	return err
}

// start must be called with c.mu held; it releases it.
func (c *Cache[V]) start(ctx context.Context, key string, e *entry[V]) (V, error) {
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	qctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	load := e.load
	c.mu.Unlock()

	v, err := load(qctx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if e.gen != gen {
		return zero, fmt.Errorf("%w: %s", ErrQueryCancelled, key)
	}
	e.cancel = nil
	if err != nil {
		return zero, err
	}
	if e.speculative {
		return c.clone(e.val), nil
	}
	e.val, e.has, e.stale, e.speculative = v, true, false, false
	return c.clone(v), nil
}

// CancelQueries aborts the in-flight load for key, if any, and makes sure a
// load that already finished cannot store its result.
func (c *Cache[V]) CancelQueries(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
}

type Snapshot[V any] struct {
	Key   string
	val   V
	has   bool
	stale bool
}

func (c *Cache[V]) Snapshot(key string) Snapshot[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot[V]{Key: key}
	if e, ok := c.entries[key]; ok && e.has {
		s.val, s.has, s.stale = c.clone(e.val), true, e.stale
	}
	return s
}

// SpeculativeApply replaces the cached value with fn of a copy of it. It
// reports false when there is nothing cached to apply to.
func (c *Cache[V]) SpeculativeApply(key string, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.has {
		return false
	}
	e.val = fn(c.clone(e.val))
	e.stale, e.speculative = false, true
	return true
}

// Speculative reports whether key holds an unconfirmed speculative value.
func (c *Cache[V]) Speculative(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && e.speculative
}

func (c *Cache[V]) Commit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.speculative = false
	}
}

// Rollback restores the value captured by s.
func (c *Cache[V]) Rollback(s Snapshot[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(s.Key)
	e.val, e.has, e.stale, e.speculative = s.val, s.has, s.stale, false
}

// Invalidate marks key stale; the next Fetch reloads it.
func (c *Cache[V]) Invalidate(key string) {
	c.InvalidateWhere(func(k string) bool { return k == key })
}

func (c *Cache[V]) InvalidateWhere(match func(key string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if match(k) {
			e.stale = true
		}
	}
}
