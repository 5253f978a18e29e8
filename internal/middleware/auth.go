package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/domain"
)

// SessionContextKey is where RequireSession stores the *domain.Session.
const SessionContextKey = "session"

// SessionSource resolves the session of a request.
type SessionSource interface {
	Current(c echo.Context) (*domain.Session, error)
}

// RequireSession protects routes that need a signed-in user. Anonymous
// requests are sent to signInPath; htmx requests get an HX-Redirect.
func RequireSession(sessions SessionSource, signInPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := sessions.Current(c)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthenticated) {
					// The auth service is unavailable; treat the user as
					// signed out for this request but keep their cookie.
					FromContext(c.Request().Context()).Warn("Could not resolve session", "error", err)
				}
				return Redirect(c, signInPath)
			}
			c.Set(SessionContextKey, sess)
			return next(c)
		}
	}
}

// RedirectIfAuthenticated keeps signed-in users away from the auth forms.
func RedirectIfAuthenticated(sessions SessionSource, landingPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sess, err := sessions.Current(c); err == nil && sess != nil {
				return Redirect(c, landingPath)
			}
			return next(c)
		}
	}
}

// SessionFromContext returns the session RequireSession stored, if any.
func SessionFromContext(c echo.Context) (*domain.Session, bool) {
	sess, ok := c.Get(SessionContextKey).(*domain.Session)
	return sess, ok && sess != nil
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Redirect sends the browser to target: HX-Redirect with 204 for htmx
// requests, 303 See Other otherwise.
func Redirect(c echo.Context, target string) error {
	if IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, target)
}
