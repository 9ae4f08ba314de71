package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Board is the client side of the todo board. Reads go through caches;
// writes are optimistic and reconciled with the server once they settle.
type Board struct {
	log *slog.Logger
	api Todos
	now func() time.Time

	todos *Cache[[]Todo]
	cats  *Cache[[]Category]

	todoWrites *Coordinator[[]Todo]
	catWrites  *Coordinator[[]Category]
}

type Option func(*Board)

func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

func NewBoard(log *slog.Logger, api Todos, opts ...Option) *Board {
	todos := NewCache(slices.Clone[[]Todo])
	cats := NewCache(slices.Clone[[]Category])
	b := &Board{
		log:        log,
		api:        api,
		now:        time.Now,
		todos:      todos,
		cats:       cats,
		todoWrites: NewCoordinator(log, todos),
		catWrites:  NewCoordinator(log, cats),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) Ping(ctx context.Context) error {
	return b.api.Ping(ctx)
}

func (b *Board) ListVisible(ctx context.Context, v View) ([]Todo, error) {
	return b.todos.Fetch(ctx, v.key(), func(ctx context.Context) ([]Todo, error) {
		return b.api.ListVisible(ctx, v)
	})
}

func (b *Board) ListDone(ctx context.Context, v View) ([]Todo, error) {
	return b.todos.Fetch(ctx, v.doneKey(), func(ctx context.Context) ([]Todo, error) {
		return b.api.ListDone(ctx, v)
	})
}

// CategoryTodos lists every todo of a category, including those no view
// shows. Reorders are built from this list.
func (b *Board) CategoryTodos(ctx context.Context, categoryID string) ([]Todo, error) {
	return b.todos.Fetch(ctx, categoryKey(categoryID), func(ctx context.Context) ([]Todo, error) {
		return b.api.ListTodos(ctx, categoryID)
	})
}

func (b *Board) Categories(ctx context.Context, userID string) ([]Category, error) {
	return b.cats.Fetch(ctx, categoriesKey(userID), func(ctx context.Context) ([]Category, error) {
		return b.api.ListCategories(ctx, userID)
	})
}

// Complete marks the todo done in v right away and asks the server to do the
// same. The completion instant is read in the view's zone, which is the
// calendar the server advances recurring todos in.
func (b *Board) Complete(ctx context.Context, v View, id string) (CompleteResult, error) {
	now := b.now().In(v.location())

	var res CompleteResult
	_, err := b.todoWrites.Run(ctx, Op[[]Todo]{
		Key: v.key(),
		Apply: func(list []Todo) []Todo {
			for i := range list {
				if list[i].ID == id && list[i].Status != Done {
					list[i].Status = Done
					at := now
					list[i].CompletedDateTime = &at
				}
			}
			sortBoard(list)
			return list
		},
		Remote: func(ctx context.Context) error {
			r, err := b.api.Complete(ctx, id, now)
			res = r
			return err
		},
	})
	b.invalidateUser(v.UserID, v.key())
	if err != nil {
		return CompleteResult{}, err
	}
	return res, nil
}

func (b *Board) Uncomplete(ctx context.Context, v View, id string) (Todo, error) {
	var t Todo
	_, err := b.todoWrites.Run(ctx, Op[[]Todo]{
		Key: v.key(),
		Apply: func(list []Todo) []Todo {
			for i := range list {
				if list[i].ID == id {
					list[i].Status = Incomplete
					list[i].CompletedDateTime = nil
				}
			}
			sortBoard(list)
			return list
		},
		Remote: func(ctx context.Context) error {
			r, err := b.api.Uncomplete(ctx, id)
			t = r
			return err
		},
	})
	b.invalidateUser(v.UserID, v.key())
	if err != nil {
		return Todo{}, err
	}
	return t, nil
}

// ReorderTodos replaces the order of a category with ids.
func (b *Board) ReorderTodos(ctx context.Context, categoryID string, ids []string) error {
	key := categoryKey(categoryID)
	_, err := b.todoWrites.Run(ctx, Op[[]Todo]{
		Key: key,
		Apply: func(list []Todo) []Todo {
			return reorder(list, ids, func(t Todo) string { return t.ID }, func(t *Todo, i int) { t.SortOrder = i })
		},
		Remote: func(ctx context.Context) error {
			return b.api.ReorderTodos(ctx, categoryID, ids)
		},
	})
	// видимые списки сортируются по sortOrder, их тоже надо перечитать
	b.todos.InvalidateWhere(func(k string) bool {
		return k != key && !strings.HasPrefix(k, "category|")
	})
	return err
}

// MoveTodo moves a todo delta positions within its category: -1 is up, 1 is
// down. The first todo cannot move up and the last cannot move down.
func (b *Board) MoveTodo(ctx context.Context, categoryID, id string, delta int) error {
	list, err := b.CategoryTodos(ctx, categoryID)
	if err != nil {
		return err
	}
	ids := make([]string, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}
	moved, err := move(ids, id, delta)
	if err != nil {
		return err
	}
	return b.ReorderTodos(ctx, categoryID, moved)
}

func (b *Board) ReorderCategories(ctx context.Context, userID string, ids []string) error {
	key := categoriesKey(userID)
	_, err := b.catWrites.Run(ctx, Op[[]Category]{
		Key: key,
		Apply: func(list []Category) []Category {
			return reorder(list, ids, func(c Category) string { return c.ID }, func(c *Category, i int) { c.SortOrder = i })
		},
		Remote: func(ctx context.Context) error {
			return b.api.ReorderCategories(ctx, userID, ids)
		},
	})
	return err
}

func (b *Board) MoveCategory(ctx context.Context, userID, id string, delta int) error {
	list, err := b.Categories(ctx, userID)
	if err != nil {
		return err
	}
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ID
	}
	moved, err := move(ids, id, delta)
	if err != nil {
		return err
	}
	return b.ReorderCategories(ctx, userID, moved)
}

// invalidateUser marks every cached todo list of the user stale except the
// one a mutation just reloaded. Category lists carry no user, so they all go.
func (b *Board) invalidateUser(userID, except string) {
	b.todos.InvalidateWhere(func(k string) bool {
		if k == except {
			return false
		}
		return strings.HasPrefix(k, "category|") ||
			strings.HasPrefix(k, "visible|"+userID+"|") ||
			strings.HasPrefix(k, "done|"+userID+"|")
	})
}

// reorder puts items in the order of ids and renumbers them. Items ids does
// not name keep their relative order after the named ones.
func reorder[T any](items []T, ids []string, key func(T) string, setPos func(*T, int)) []T {
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	pos := func(t T) int {
		if r, ok := rank[key(t)]; ok {
			return r
		}
		return len(ids)
	}
	slices.SortStableFunc(items, func(a, b T) int { return pos(a) - pos(b) })
	for i := range items {
		setPos(&items[i], i)
	}
	return items
}

func move(ids []string, id string, delta int) ([]string, error) {
	from := slices.Index(ids, id)
	if from < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	to := from + delta
	if delta == 0 || to < 0 || to >= len(ids) {
		return nil, ErrCannotMove
	}
	out := slices.Delete(slices.Clone(ids), from, from+1)
	return slices.Insert(out, to, id), nil
}
