package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/forms"
	"github.com/nfrund/durian/internal/middleware"
	"github.com/nfrund/durian/internal/rendering"
	"github.com/nfrund/durian/internal/view"
)

// formStatus picks the status for a re-rendered form. htmx only swaps 2xx
// responses by default, so fragment requests always get 200.
func formStatus(c echo.Context, status int) int {
	if middleware.IsHTMX(c) {
		return http.StatusOK
	}
	return status
}

// renderForm answers with the form fragment for htmx and the full page
// otherwise.
func renderForm(c echo.Context, r rendering.Renderer, status int, snap forms.Snapshot) error {
	if middleware.IsHTMX(c) {
		return r.RenderPage(c, formStatus(c, status), view.AuthForm(snap))
	}
	return r.RenderPage(c, status, view.AuthPage(snap, view.GetFlashData(c)))
}
