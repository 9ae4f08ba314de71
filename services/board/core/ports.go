package core

import (
	"context"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Todos is the remote todos service.
type Todos interface {
	Pinger

	ListVisible(ctx context.Context, v View) ([]Todo, error)
	ListDone(ctx context.Context, v View) ([]Todo, error)
	ListTodos(ctx context.Context, categoryID string) ([]Todo, error)
	Complete(ctx context.Context, id string, now time.Time) (CompleteResult, error)
	Uncomplete(ctx context.Context, id string) (Todo, error)
	ReorderTodos(ctx context.Context, categoryID string, ids []string) error

	ListCategories(ctx context.Context, userID string) ([]Category, error)
	ReorderCategories(ctx context.Context, userID string, ids []string) error
}
