package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"todo-board/services/todos/core"
)

var errConnRefused = errors.New("connection refused")

type fakeDB struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	categories map[string]core.Category
	todos      map[string]core.Todo

	// failOn makes the named operation fail with a transient store error.
	failOn string
	// failAfter lets that many writes of SetTodoOrder through before failing.
	failAfter int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		categories: make(map[string]core.Category),
		todos:      make(map[string]core.Todo),
	}
}

func cloneTodo(t core.Todo) core.Todo {
	out := t
	if t.CompletedDateTime != nil {
		ts := *t.CompletedDateTime
		out.CompletedDateTime = &ts
	}
	if t.Schedule != nil {
		s := *t.Schedule
		out.Schedule = &s
	}
	return out
}

func (db *fakeDB) fail(op string) error {
	if db.failOn == op {
		return &core.TransientStoreError{Op: op, Err: errConnRefused}
	}
	return nil
}

func (db *fakeDB) Ping(context.Context) error {
	return db.fail("ping")
}

// InTx snapshots both tables and restores them when fn fails.
func (db *fakeDB) InTx(ctx context.Context, fn func(tx core.Store) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	cats := make(map[string]core.Category, len(db.categories))
	for k, v := range db.categories {
		cats[k] = v
	}
	todos := make(map[string]core.Todo, len(db.todos))
	for k, v := range db.todos {
		todos[k] = cloneTodo(v)
	}
	db.mu.RUnlock()

	if err := fn(db); err != nil {
		db.mu.Lock()
		db.categories = cats
		db.todos = todos
		db.mu.Unlock()
		return err
	}
	return nil
}

// Categories

func (db *fakeDB) CreateCategory(_ context.Context, c core.Category) error {
	if err := db.fail("create category"); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	db.categories[c.ID] = c
	return nil
}

func (db *fakeDB) GetCategory(_ context.Context, id string) (core.Category, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.categories[id]
	if !ok {
		return core.Category{}, core.CategoryNotFound(id)
	}
	return c, nil
}

func (db *fakeDB) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	if err := db.fail("list categories"); err != nil {
		return nil, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]core.Category, 0)
	for _, c := range db.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (db *fakeDB) DeleteCategory(_ context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.categories[id]; !ok {
		return core.CategoryNotFound(id)
	}
	delete(db.categories, id)
	for tid, t := range db.todos {
		if t.CategoryID == id {
			delete(db.todos, tid)
		}
	}
	return nil
}

func (db *fakeDB) SetCategoryOrder(_ context.Context, userID string, ids []string) error {
	if err := db.fail("set category order"); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, id := range ids {
		c, ok := db.categories[id]
		if !ok || c.UserID != userID {
			continue
		}
		c.SortOrder = i
		db.categories[id] = c
	}
	return nil
}

// Todos

func (db *fakeDB) CreateTodo(_ context.Context, t core.Todo) error {
	if err := db.fail("create todo"); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.categories[t.CategoryID]
	if !ok {
		return core.CategoryNotFound(t.CategoryID)
	}
	t.CategoryName = c.Name
	t.UserID = c.UserID
	db.todos[t.ID] = cloneTodo(t)
	return nil
}

func (db *fakeDB) GetTodo(_ context.Context, id string) (core.Todo, error) {
	if err := db.fail("get todo"); err != nil {
		return core.Todo{}, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.todos[id]
	if !ok {
		return core.Todo{}, core.TodoNotFound(id)
	}
	return cloneTodo(t), nil
}

func (db *fakeDB) ListTodos(_ context.Context, categoryID string) ([]core.Todo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]core.Todo, 0)
	for _, t := range db.todos {
		if t.CategoryID == categoryID {
			out = append(out, cloneTodo(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListCandidates returns every todo of the user; the engine applies the
// predicate itself.
func (db *fakeDB) ListCandidates(_ context.Context, userID string, _ core.Window) ([]core.Todo, error) {
	if err := db.fail("list candidates"); err != nil {
		return nil, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]core.Todo, 0)
	for _, t := range db.todos {
		if t.UserID == userID {
			out = append(out, cloneTodo(t))
		}
	}
	return out, nil
}

func (db *fakeDB) MarkDone(_ context.Context, id string, at time.Time) (bool, error) {
	if err := db.fail("mark done"); err != nil {
		return false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.todos[id]
	if !ok {
		return false, core.TodoNotFound(id)
	}
	if t.Status == core.Done {
		return false, nil
	}
	t.Status = core.Done
	t.CompletedDateTime = &at
	db.todos[id] = t
	return true, nil
}

func (db *fakeDB) MarkIncomplete(_ context.Context, id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.todos[id]
	if !ok {
		return false, core.TodoNotFound(id)
	}
	if t.Status == core.Incomplete {
		return false, nil
	}
	t.Status = core.Incomplete
	t.CompletedDateTime = nil
	db.todos[id] = t
	return true, nil
}

func (db *fakeDB) DeleteTodo(_ context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.todos[id]; !ok {
		return core.TodoNotFound(id)
	}
	delete(db.todos, id)
	return nil
}

func (db *fakeDB) SetTodoOrder(_ context.Context, categoryID string, ids []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, id := range ids {
		if db.failOn == "set todo order" && i == db.failAfter {
			return &core.TransientStoreError{Op: "set todo order", Err: errConnRefused}
		}
		t, ok := db.todos[id]
		if !ok || t.CategoryID != categoryID {
			continue
		}
		t.SortOrder = i
		db.todos[id] = t
	}
	return nil
}

func (db *fakeDB) Suggestions(_ context.Context, userID string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, t := range db.todos {
		if t.UserID == userID && !seen[t.Name] {
			seen[t.Name] = true
			out = append(out, t.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// orders returns id -> sortOrder for a category.
func (db *fakeDB) orders(categoryID string) map[string]int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make(map[string]int)
	for _, t := range db.todos {
		if t.CategoryID == categoryID {
			out[t.ID] = t.SortOrder
		}
	}
	return out
}

func (db *fakeDB) count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.todos)
}
