package handlers

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"todo-board/services/todos/core"
)

func Register(e *echo.Echo, log *slog.Logger, svc core.Todos, timeout time.Duration) {
	api := e.Group("/api")

	// ping
	api.GET("/ping", NewPingHandler(log, map[string]core.Pinger{"todos": svc}, timeout))

	// board
	api.GET("/users/:userId/todos", NewListVisibleHandler(log, svc, timeout))
	api.GET("/users/:userId/todos/done", NewListDoneHandler(log, svc, timeout))
	api.GET("/users/:userId/suggestions", NewSuggestionsHandler(log, svc, timeout))

	// categories
	api.GET("/users/:userId/categories", NewListCategoriesHandler(log, svc, timeout))
	api.POST("/users/:userId/categories", NewCreateCategoryHandler(log, svc, timeout))
	api.PUT("/users/:userId/categories/order", NewReorderCategoriesHandler(log, svc, timeout))
	api.GET("/categories/:id", NewGetCategoryHandler(log, svc, timeout))
	api.DELETE("/categories/:id", NewDeleteCategoryHandler(log, svc, timeout))

	// todos
	api.PUT("/categories/:id/todos/order", NewReorderTodosHandler(log, svc, timeout))
	api.GET("/categories/:id/todos", NewListTodosHandler(log, svc, timeout))
	api.POST("/categories/:id/todos", NewCreateTodoHandler(log, svc, timeout))
	api.GET("/todos/:id", NewGetTodoHandler(log, svc, timeout))
	api.DELETE("/todos/:id", NewDeleteTodoHandler(log, svc, timeout))
	api.POST("/todos/:id/complete", NewCompleteHandler(log, svc, timeout))
	api.POST("/todos/:id/uncomplete", NewUncompleteHandler(log, svc, timeout))
}
