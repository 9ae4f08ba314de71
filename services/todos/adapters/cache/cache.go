package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"todo-board/services/todos/core"
)

// Cache keeps visibility query results in a per-user redis hash. Every
// mutation that can change a user's todos drops the whole hash and bumps the
// user's version; a load that started under an older version is not stored.
type Cache struct {
	core.Todos
	log   *slog.Logger
	redis *redis.Client
	ttl   time.Duration
}

func New(log *slog.Logger, base core.Todos, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("cache.New: base engine is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Todos: base, log: log, redis: client, ttl: ttl}
}

const (
	kindVisible = "visible"
	kindDone    = "done"
)

func (c *Cache) ListVisible(ctx context.Context, userID string, ref time.Time, g core.Granularity) ([]core.Todo, error) {
	return c.readThrough(ctx, kindVisible, userID, ref, g, c.Todos.ListVisible)
}

func (c *Cache) ListDone(ctx context.Context, userID string, ref time.Time, g core.Granularity) ([]core.Todo, error) {
	return c.readThrough(ctx, kindDone, userID, ref, g, c.Todos.ListDone)
}

type listFn func(ctx context.Context, userID string, ref time.Time, g core.Granularity) ([]core.Todo, error)

func (c *Cache) readThrough(ctx context.Context, kind, userID string, ref time.Time, g core.Granularity, load listFn) ([]core.Todo, error) {
	field := windowField(kind, g, core.Resolve(ref, g))

	if todos, ok := c.load(ctx, userID, field); ok {
		return todos, nil
	}
	ver, verOK := c.version(ctx, userID)

	todos, err := load(ctx, userID, ref, g)
	if err != nil {
		return nil, err
	}

	if verOK {
		c.store(ctx, userID, field, ver, todos)
	}
	return todos, nil
}

func (c *Cache) Complete(ctx context.Context, id string, now time.Time) (core.CompleteResult, error) {
	res, err := c.Todos.Complete(ctx, id, now)
	if err != nil {
		c.evictTodoOwner(ctx, id)
		return core.CompleteResult{}, err
	}
	c.evict(ctx, res.Todo.UserID)
	return res, nil
}

func (c *Cache) Uncomplete(ctx context.Context, id string) (core.Todo, error) {
	t, err := c.Todos.Uncomplete(ctx, id)
	if err != nil {
		c.evictTodoOwner(ctx, id)
		return core.Todo{}, err
	}
	c.evict(ctx, t.UserID)
	return t, nil
}

func (c *Cache) CreateTodo(ctx context.Context, nt core.NewTodo) (core.Todo, error) {
	t, err := c.Todos.CreateTodo(ctx, nt)
	if err != nil {
		return core.Todo{}, err
	}
	c.evict(ctx, t.UserID)
	return t, nil
}

func (c *Cache) DeleteTodo(ctx context.Context, id string) error {
	owner := c.todoOwner(ctx, id)
	err := c.Todos.DeleteTodo(ctx, id)
	c.evict(ctx, owner)
	return err
}

func (c *Cache) ReorderTodos(ctx context.Context, categoryID string, ordered []string) error {
	owner := c.categoryOwner(ctx, categoryID)
	err := c.Todos.ReorderTodos(ctx, categoryID, ordered)
	c.evict(ctx, owner)
	return err
}

func (c *Cache) ReorderCategories(ctx context.Context, userID string, ordered []string) error {
	err := c.Todos.ReorderCategories(ctx, userID, ordered)
	c.evict(ctx, userID)
	return err
}

func (c *Cache) DeleteCategory(ctx context.Context, id string) error {
	owner := c.categoryOwner(ctx, id)
	err := c.Todos.DeleteCategory(ctx, id)
	c.evict(ctx, owner)
	return err
}

func (c *Cache) todoOwner(ctx context.Context, id string) string {
	t, err := c.Todos.GetTodo(ctx, id)
	if err != nil {
		return ""
	}
	return t.UserID
}

func (c *Cache) categoryOwner(ctx context.Context, id string) string {
	cat, err := c.Todos.GetCategory(ctx, id)
	if err != nil {
		return ""
	}
	return cat.UserID
}

// evictTodoOwner is used after a failed mutation whose outcome in the store
// is unknown, e.g. a commit that timed out.
func (c *Cache) evictTodoOwner(ctx context.Context, id string) {
	if c.redis == nil {
		return
	}
	c.evict(ctx, c.todoOwner(ctx, id))
}

func (c *Cache) load(ctx context.Context, userID, field string) ([]core.Todo, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.HGet(ctx, cacheKey(userID), field).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("cache read failed", "user", userID, "error", err)
		}
		return nil, false
	}
	var todos []core.Todo
	if err := sonic.Unmarshal(data, &todos); err != nil {
		c.log.Debug("cache payload corrupt", "user", userID, "error", err)
		_ = c.redis.HDel(ctx, cacheKey(userID), field).Err()
		return nil, false
	}
	return todos, true
}

// version reads the user's eviction counter. A missing counter is zero.
func (c *Cache) version(ctx context.Context, userID string) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	v, err := c.redis.Get(ctx, versionKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Debug("cache version read failed", "user", userID, "error", err)
		return 0, false
	}
	return v, true
}

var errStaleLoad = errors.New("user evicted during load")

// store writes todos under field only while the user's version still equals
// ver. WATCH makes an eviction between the check and EXEC abort the write.
func (c *Cache) store(ctx context.Context, userID, field string, ver int64, todos []core.Todo) {
	data, err := sonic.Marshal(todos)
	if err != nil {
		return
	}
	key, vkey := cacheKey(userID), versionKey(userID)

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != ver {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, data)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleLoad), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("cache write skipped, list changed during load", "user", userID)
	default:
		c.log.Debug("cache write failed", "user", userID, "error", err)
	}
}

func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil || userID == "" {
		return
	}
	pipe := c.redis.TxPipeline()
	pipe.Incr(ctx, versionKey(userID))
	pipe.Del(ctx, cacheKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error("cache evict failed", "user", userID, "error", err)
	}
}

func cacheKey(userID string) string {
	return "todos:" + userID
}

func versionKey(userID string) string {
	return "todos-version:" + userID
}

// windowField names one cached list. The window instants carry the caller's
// time zone, so the same date in two zones is cached separately.
func windowField(kind string, g core.Granularity, w core.Window) string {
	return fmt.Sprintf("%s|%s|%d|%d", kind, g, w.Start.UnixMilli(), w.End.UnixMilli())
}
