package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"todo-board/services/todos/adapters/rest"
	"todo-board/services/todos/core"
	"todo-board/services/todos/pkg/res"
)

func NewListCategoriesHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		items, err := svc.ListCategories(ctx, c.Param("userId"))
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{"categories": items}, http.StatusOK)
	}
}

func NewCreateCategoryHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in rest.CreateCategoryIn
		if err := c.Bind(&in); err != nil {
			return rest.BadRequest(c, "invalid json")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		cat, err := svc.CreateCategory(ctx, core.NewCategory{
			UserID:      c.Param("userId"),
			Name:        in.Name,
			Description: in.Description,
			Color:       in.Color,
			MaxPerDay:   in.MaxPerDay,
		})
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, cat, http.StatusCreated)
	}
}

func NewGetCategoryHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		cat, err := svc.GetCategory(ctx, c.Param("id"))
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, cat, http.StatusOK)
	}
}

func NewReorderCategoriesHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in rest.ReorderIn
		if err := c.Bind(&in); err != nil || in.IDs == nil {
			return rest.BadRequest(c, "ids required")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		if err := svc.ReorderCategories(ctx, c.Param("userId"), in.IDs); err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{"ok": true}, http.StatusOK)
	}
}

func NewDeleteCategoryHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		if err := svc.DeleteCategory(ctx, c.Param("id")); err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{"ok": true}, http.StatusOK)
	}
}
