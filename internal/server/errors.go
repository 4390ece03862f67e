package server

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/relaychat/internal/middleware"
)

// setupErrorHandling installs an error handler that logs unexpected errors
// with a stack trace and hides their details from the client.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		logger := middleware.FromContext(c.Request().Context())

		var he *echo.HTTPError
		if errors.As(err, &he) {
			if he.Code >= http.StatusInternalServerError {
				logger.Error("HTTP error", "status", he.Code, "error", err)
			}
			_ = c.JSON(he.Code, map[string]any{"message": he.Message})
			return
		}

		logger.Error("Internal Server Error (Unhandled)",
			"error", err.Error(),
			"stack_trace", string(debug.Stack()),
		)
		_ = c.JSON(http.StatusInternalServerError, map[string]any{
			"message": http.StatusText(http.StatusInternalServerError),
		})
	}
}
