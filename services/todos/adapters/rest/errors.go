package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"todo-board/services/todos/core"
	"todo-board/services/todos/pkg/res"
)

// Error codes carried in ErrorOut.Code. Clients map them back to typed errors.
const (
	CodeInvalidArgs     = "INVALID_ARGS"
	CodeInvalidSchedule = "INVALID_SCHEDULE"
	CodeNotFound        = "NOT_FOUND"
	CodeOrderMismatch   = "ORDER_MISMATCH"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL"
)

func WriteErr(c echo.Context, log *slog.Logger, err error) error {
	out := ErrorOut{Error: err.Error()}
	code := http.StatusInternalServerError

	var (
		schedErr    *core.InvalidScheduleError
		mismatchErr *core.OrderMismatchError
		notFoundErr *core.NotFoundError
	)

	switch {
	case errors.As(err, &schedErr):
		code, out.Code = http.StatusUnprocessableEntity, CodeInvalidSchedule
		out.Unit, out.Count = string(schedErr.Unit), schedErr.Count
	case errors.As(err, &mismatchErr):
		code, out.Code = http.StatusConflict, CodeOrderMismatch
		out.Scope = mismatchErr.Scope.String()
		out.Missing = mismatchErr.Missing
		out.Unexpected = mismatchErr.Unexpected
		out.Duplicated = mismatchErr.Duplicated
	case errors.As(err, &notFoundErr):
		code, out.Code = http.StatusNotFound, CodeNotFound
		out.Kind, out.ID = notFoundErr.Kind, notFoundErr.ID
	case errors.Is(err, core.ErrNotFound):
		code, out.Code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, core.ErrInvalidArgs):
		code, out.Code = http.StatusBadRequest, CodeInvalidArgs
	case errors.Is(err, core.ErrTransientStore):
		log.Warn("store unavailable", "path", c.Path(), "error", err)
		code, out.Code = http.StatusServiceUnavailable, CodeUnavailable
		out.Error = "store unavailable, retry later"
	default:
		log.Error("request failed", "path", c.Path(), "error", err)
		out = ErrorOut{Error: "internal error", Code: CodeInternal}
	}

	return res.Json(c, out, code)
}

// BadRequest reports a malformed body or query.
func BadRequest(c echo.Context, msg string) error {
	return res.Json(c, ErrorOut{Error: msg, Code: CodeInvalidArgs}, http.StatusBadRequest)
}

// ErrorHandler renders errors returned by handlers and by echo itself
// (unknown route, bad body) in the same shape as WriteErr.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code := CodeInternal
			switch he.Code {
			case http.StatusBadRequest, http.StatusUnsupportedMediaType:
				code = CodeInvalidArgs
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				code = CodeNotFound
			}
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(he.Code)
			}
			_ = res.Json(c, ErrorOut{Error: msg, Code: code}, he.Code)
			return
		}
		_ = WriteErr(c, log, err)
	}
}
