package res

import (
	"github.com/labstack/echo/v4"
)

func Json(c echo.Context, data any, statusCode int) error {
	return c.JSON(statusCode, data)
}
