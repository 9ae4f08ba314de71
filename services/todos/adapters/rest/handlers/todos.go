package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"todo-board/services/todos/adapters/rest"
	"todo-board/services/todos/core"
	"todo-board/services/todos/pkg/res"
)

const dateLayout = "2006-01-02"

// parseRef reads date, tz and granularity query params. date is either a
// calendar date read in tz or an RFC3339 instant; absent means today in tz.
func parseRef(c echo.Context, now time.Time) (time.Time, core.Granularity, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(c.QueryParam("tz")); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, "", core.ErrInvalidArgs
		}
		loc = l
	}

	g := core.Day
	if v := c.QueryParam("granularity"); v != "" {
		parsed, err := core.ParseGranularity(v)
		if err != nil {
			return time.Time{}, "", err
		}
		g = parsed
	}

	ref := now.In(loc)
	if v := strings.TrimSpace(c.QueryParam("date")); v != "" {
		if d, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
			ref = d
		} else if ts, err := time.Parse(time.RFC3339, v); err == nil {
			ref = ts
			if c.QueryParam("tz") != "" {
				ref = ts.In(loc)
			}
		} else {
			return time.Time{}, "", core.ErrInvalidArgs
		}
	}
	return ref, g, nil
}

type listFn func(ctx context.Context, userID string, ref time.Time, g core.Granularity) ([]core.Todo, error)

func newWindowListHandler(log *slog.Logger, list listFn, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref, g, err := parseRef(c, time.Now())
		if err != nil {
			return rest.BadRequest(c, "invalid date, tz or granularity")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		items, err := list(ctx, c.Param("userId"), ref, g)
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{
			"todos":  items,
			"window": core.Resolve(ref, g),
		}, http.StatusOK)
	}
}

func NewListVisibleHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return newWindowListHandler(log, svc.ListVisible, timeout)
}

func NewListDoneHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return newWindowListHandler(log, svc.ListDone, timeout)
}

func NewSuggestionsHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		names, err := svc.Suggestions(ctx, c.Param("userId"))
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{"suggestions": names}, http.StatusOK)
	}
}

func NewCreateTodoHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in rest.CreateTodoIn
		if err := c.Bind(&in); err != nil {
			return rest.BadRequest(c, "invalid json")
		}

		nt := core.NewTodo{
			CategoryID: c.Param("id"),
			Name:       in.Name,
			Notes:      in.Notes,
			Size:       core.Size(strings.ToUpper(in.Size)),
			Priority:   core.Priority(strings.ToUpper(in.Priority)),
		}
		if in.StartDate != nil {
			nt.StartDate = *in.StartDate
		}
		if in.Schedule != nil {
			// неизвестный unit отклоняется в сервисе как InvalidSchedule
			unit := core.Unit(strings.ToUpper(strings.TrimSpace(in.Schedule.Unit)))
			nt.Schedule = &core.Schedule{Unit: unit, Count: in.Schedule.Count}
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		t, err := svc.CreateTodo(ctx, nt)
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, t, http.StatusCreated)
	}
}

func NewListTodosHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		items, err := svc.ListTodos(ctx, c.Param("id"))
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{"todos": items}, http.StatusOK)
	}
}

func NewGetTodoHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		t, err := svc.GetTodo(ctx, c.Param("id"))
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, t, http.StatusOK)
	}
}

func NewDeleteTodoHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		if err := svc.DeleteTodo(ctx, c.Param("id")); err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{"ok": true}, http.StatusOK)
	}
}

func NewCompleteHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in rest.CompleteIn
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&in); err != nil {
				return rest.BadRequest(c, "invalid json")
			}
		}
		now := time.Now()
		if in.Now != nil {
			now = *in.Now
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		out, err := svc.Complete(ctx, c.Param("id"), now)
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, out, http.StatusOK)
	}
}

func NewUncompleteHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		t, err := svc.Uncomplete(ctx, c.Param("id"))
		if err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, t, http.StatusOK)
	}
}

func NewReorderTodosHandler(log *slog.Logger, svc core.Todos, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in rest.ReorderIn
		if err := c.Bind(&in); err != nil || in.IDs == nil {
			return rest.BadRequest(c, "ids required")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		if err := svc.ReorderTodos(ctx, c.Param("id"), in.IDs); err != nil {
			return rest.WriteErr(c, log, err)
		}
		return res.Json(c, map[string]any{"ok": true}, http.StatusOK)
	}
}
