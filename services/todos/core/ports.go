package core

import (
	"context"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the set of storage operations the engine runs, either directly or
// inside a transaction.
type Store interface {
	// categories
	CreateCategory(ctx context.Context, c Category) error
	GetCategory(ctx context.Context, id string) (Category, error)
	ListCategories(ctx context.Context, userID string) ([]Category, error)
	DeleteCategory(ctx context.Context, id string) error
	SetCategoryOrder(ctx context.Context, userID string, ids []string) error

	// todos
	CreateTodo(ctx context.Context, t Todo) error
	GetTodo(ctx context.Context, id string) (Todo, error)
	ListTodos(ctx context.Context, categoryID string) ([]Todo, error)
	ListCandidates(ctx context.Context, userID string, w Window) ([]Todo, error)
	MarkDone(ctx context.Context, id string, at time.Time) (bool, error)
	MarkIncomplete(ctx context.Context, id string) (bool, error)
	DeleteTodo(ctx context.Context, id string) error
	SetTodoOrder(ctx context.Context, categoryID string, ids []string) error
	Suggestions(ctx context.Context, userID string) ([]string, error)
}

type DB interface {
	Pinger
	Store

	// InTx runs fn in one transaction; any error returned by fn rolls it back.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// Todos is the engine as seen by the transport. Service implements it and
// adapters may decorate it.
type Todos interface {
	Pinger

	ListVisible(ctx context.Context, userID string, ref time.Time, g Granularity) ([]Todo, error)
	ListDone(ctx context.Context, userID string, ref time.Time, g Granularity) ([]Todo, error)
	Complete(ctx context.Context, id string, now time.Time) (CompleteResult, error)
	Uncomplete(ctx context.Context, id string) (Todo, error)
	ReorderTodos(ctx context.Context, categoryID string, ordered []string) error
	ReorderCategories(ctx context.Context, userID string, ordered []string) error

	ListCategories(ctx context.Context, userID string) ([]Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	CreateCategory(ctx context.Context, nc NewCategory) (Category, error)
	DeleteCategory(ctx context.Context, id string) error

	GetTodo(ctx context.Context, id string) (Todo, error)
	ListTodos(ctx context.Context, categoryID string) ([]Todo, error)
	CreateTodo(ctx context.Context, nt NewTodo) (Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	Suggestions(ctx context.Context, userID string) ([]string, error)
}

var _ Todos = (*Service)(nil)
