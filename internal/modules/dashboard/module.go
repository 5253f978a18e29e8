// Package dashboard mounts the signed-in landing page and its widgets.
package dashboard

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/handlers"
	"github.com/nfrund/durian/internal/middleware"
	"github.com/nfrund/durian/internal/module"
	"github.com/nfrund/durian/internal/registry"
)

// DashboardModule implements module.Module.
type DashboardModule struct {
	module.BaseModule
}

func New() *DashboardModule {
	return &DashboardModule{}
}

func (m *DashboardModule) Name() string {
	return "dashboard"
}

// Boot registers the dashboard routes behind RequireSession.
func (m *DashboardModule) Boot(_ context.Context, g *echo.Group, reg *registry.Registry) error {
	cfg := reg.Config()
	h := handlers.NewDashboardHandler(registry.MustGet(reg, registry.RendererKey))
	auth := middleware.RequireSession(registry.MustGet(reg, registry.SessionsKey), cfg.GetSignInPath())

	slog.Info("Booting DashboardModule: Setting up routes...")
	g.GET(cfg.GetLandingPath(), h.DashboardGet, auth)

	cmd := g.Group("/dashboard/command", auth)
	cmd.GET("", h.CommandGet)
	cmd.GET("/search", h.CommandSearch)
	return nil
}
