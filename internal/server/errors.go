package server

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/middleware"
	"github.com/nfrund/durian/internal/view"
)

// setupErrorHandling installs the HTTP error handler. Unhandled errors are
// logged with a stack trace and shown as a generic 500; HTTP errors keep
// their status and message.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		} else {
			slog.ErrorContext(c.Request().Context(), "Internal Server Error (Unhandled)",
				"error", err.Error(),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"stack_trace", string(debug.Stack()),
			)
		}

		var writeErr error
		switch {
		case c.Request().Method == http.MethodHead:
			writeErr = c.NoContent(code)
		case wantsHTML(c):
			c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
			c.Response().WriteHeader(code)
			writeErr = view.ErrorPage(code, message).Render(c.Request().Context(), c.Response())
		default:
			writeErr = c.JSON(code, map[string]string{"message": message})
		}
		if writeErr != nil {
			middleware.FromContext(c.Request().Context()).Error("Failed to write error response", "error", writeErr)
		}
	}
}

// wantsHTML reports whether the client asked for a page rather than data.
// htmx requests get the page too so the error can be swapped in.
func wantsHTML(c echo.Context) bool {
	if middleware.IsHTMX(c) {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
