package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/middleware"
	"github.com/nfrund/durian/internal/rendering"
	"github.com/nfrund/durian/internal/view"
)

// DashboardHandler handles requests for the signed-in landing page.
type DashboardHandler struct {
	renderer rendering.Renderer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(renderer rendering.Renderer) *DashboardHandler {
	return &DashboardHandler{renderer: renderer}
}

// DashboardGet shows the dashboard (GET /).
func (h *DashboardHandler) DashboardGet(c echo.Context) error {
	// RequireSession has already run and placed the session in the context.
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return h.renderer.RenderPage(c, http.StatusOK, view.DashboardPage(sess, view.GetFlashData(c)))
}

// CommandGet renders the command palette fragment, open when ?open=1
// (GET /dashboard/command).
func (h *DashboardHandler) CommandGet(c echo.Context) error {
	open := c.QueryParam("open") == "1"
	return h.renderer.RenderPage(c, http.StatusOK, view.CommandPalette(open, "", nil))
}

// CommandSearch renders the palette result list for ?q=
// (GET /dashboard/command/search).
func (h *DashboardHandler) CommandSearch(c echo.Context) error {
	var req CommandSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid search")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query is too long")
	}
	return h.renderer.RenderPage(c, http.StatusOK, view.CommandResults(view.SearchCommands(req.Query)))
}
