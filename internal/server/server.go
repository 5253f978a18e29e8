package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"

	"github.com/nfrund/durian/internal/config"
	"github.com/nfrund/durian/internal/domain"
	"github.com/nfrund/durian/internal/forms"
	"github.com/nfrund/durian/internal/handlers"
	appmiddleware "github.com/nfrund/durian/internal/middleware"
	"github.com/nfrund/durian/internal/module"
	"github.com/nfrund/durian/internal/pubsub"
	"github.com/nfrund/durian/internal/registry"
	"github.com/nfrund/durian/internal/rendering"
	authsession "github.com/nfrund/durian/internal/session"
)

// Dependencies are the services the server is built from. Config and
// Gateway are required; the rest default to their production values.
type Dependencies struct {
	Config   config.Provider
	Gateway  domain.AuthGateway
	Renderer rendering.Renderer
	// Bus carries the audit events. Defaults to a new in-memory bus.
	Bus    *pubsub.WatermillBridge
	Echo   *echo.Echo
	Assets afero.Fs
}

// Server holds the HTTP server and the long-lived services behind it.
type Server struct {
	E        *echo.Echo
	Cfg      config.Provider
	Views    *forms.Views
	Sessions *authsession.Provider
	Bus      *pubsub.WatermillBridge

	reg     *registry.Registry
	modules []module.Module
}

// New creates a new Server instance and registers the core services.
func New(deps Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("server: auth gateway is required")
	}
	cfg := deps.Config

	if deps.Renderer == nil {
		deps.Renderer = rendering.NewUniversalRenderer()
	}
	if deps.Bus == nil {
		deps.Bus = pubsub.NewWatermillBridge()
	}
	e := deps.Echo
	if e == nil {
		e = echo.New()
	}
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	if r, ok := deps.Renderer.(echo.Renderer); ok {
		e.Renderer = r
	}
	setupErrorHandling(e)

	secure := strings.HasPrefix(cfg.GetAppBaseURL(), "https://")
	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	e.Use(echomw.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(echomw.Recover())
	e.Use(session.Middleware(store))

	views := forms.NewViews(forms.ViewsOptions{
		IdleTTL:  cfg.GetViewIdleTTL(),
		MaxViews: cfg.GetViewMax(),
		Logger:   slog.Default().With("component", "views"),
	})
	sessionProvider := authsession.NewProvider(deps.Gateway, authsession.Options{Secure: secure})

	reg := registry.New(cfg)
	registry.Set(reg, registry.GatewayKey, deps.Gateway)
	registry.Set(reg, registry.SessionsKey, sessionProvider)
	registry.Set(reg, registry.ViewsKey, views)
	registry.Set(reg, registry.RendererKey, deps.Renderer)
	registry.Set[pubsub.Publisher](reg, registry.PublisherKey, deps.Bus)
	registry.Set[pubsub.Subscriber](reg, registry.SubscriberKey, deps.Bus)

	s := &Server{
		E:        e,
		Cfg:      cfg,
		Views:    views,
		Sessions: sessionProvider,
		Bus:      deps.Bus,
		reg:      reg,
	}
	if err := s.registerCoreRoutes(deps.Assets); err != nil {
		return nil, err
	}
	return s, nil
}

// Registry exposes the service registry, mainly for tests.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

// InitModules registers every module, then boots them on the root group.
func (s *Server) InitModules(ctx context.Context, modules []module.Module) error {
	for _, m := range modules {
		if err := m.Register(s.reg); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	slog.Debug("Booting modules", "services", s.reg.Names())
	root := s.E.Group("")
	for _, m := range modules {
		if err := m.Boot(ctx, root, s.reg); err != nil {
			return fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
		slog.Debug("Module booted", "module", m.Name())
	}
	s.modules = append(s.modules, modules...)
	return nil
}

// shutdownModules gives every module a chance to clean up, in reverse
// boot order.
func (s *Server) shutdownModules(ctx context.Context) error {
	var errs []error
	for i := len(s.modules) - 1; i >= 0; i-- {
		m := s.modules[i]
		if err := m.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown module %s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

const shutdownTimeout = 10 * time.Second
