package core

import (
	"context"
	"log/slog"
	"sync"
)

// Op is one optimistic write against a single cache key.
type Op[V any] struct {
	Key string
	// Apply computes the expected value locally. It gets a copy and may
	// modify it in place.
	Apply  func(V) V
	Remote func(ctx context.Context) error
}

// Coordinator runs optimistic mutations over a Cache. Mutations on the same
// key run one at a time; different keys do not block each other.
type Coordinator[V any] struct {
	log   *slog.Logger
	cache *Cache[V]

	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewCoordinator[V any](log *slog.Logger, cache *Cache[V]) *Coordinator[V] {
	return &Coordinator[V]{log: log, cache: cache, locks: map[string]chan struct{}{}}
}

func (c *Coordinator[V]) lock(ctx context.Context, key string) (func(), error) {
	c.mu.Lock()
	ch, ok := c.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		c.locks[key] = ch
	}
	c.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run cancels queries in flight for the key, snapshots it, applies the
// speculation and calls the server. A failure restores the snapshot. Either
// way the key is invalidated and reloaded afterwards, so the cache ends up
// holding what the server has. The returned error is the remote one.
func (c *Coordinator[V]) Run(ctx context.Context, op Op[V]) (*Mutation[V], error) {
	unlock, err := c.lock(ctx, op.Key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c.cache.CancelQueries(op.Key)
	m := newMutation(c.cache.Snapshot(op.Key))
	if op.Apply != nil {
		c.cache.SpeculativeApply(op.Key, op.Apply)
	}

	err = op.Remote(ctx)
	if err != nil {
		c.cache.Rollback(m.snapshot)
		_ = m.rollback(err)
		c.log.Debug("mutation rolled back", "key", op.Key, "error", err)
	} else {
		c.cache.Commit(op.Key)
		_ = m.commit()
	}

	c.cache.Invalidate(op.Key)
	if ferr := c.cache.Refresh(ctx, op.Key); ferr != nil {
		c.log.Warn("refetch after mutation failed", "key", op.Key, "error", ferr)
	}
	return m, err
}
