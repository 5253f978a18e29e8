// Package auth mounts the sign-in, sign-up and sign-out routes and runs the
// audit subscriber.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/audit"
	"github.com/nfrund/durian/internal/forms"
	"github.com/nfrund/durian/internal/gateway"
	"github.com/nfrund/durian/internal/handlers"
	"github.com/nfrund/durian/internal/middleware"
	"github.com/nfrund/durian/internal/module"
	"github.com/nfrund/durian/internal/registry"
)

// AuthModule implements module.Module and module.Runner.
type AuthModule struct {
	module.BaseModule
	subscriber *audit.Subscriber
}

// New creates a new instance of the AuthModule.
func New() *AuthModule {
	return &AuthModule{}
}

// Name returns the unique name for the module.
func (m *AuthModule) Name() string {
	return "auth"
}

// Register creates the audit subscriber.
func (m *AuthModule) Register(reg *registry.Registry) error {
	sub := registry.MustGet(reg, registry.SubscriberKey)
	m.subscriber = audit.NewSubscriber(sub, slog.Default())
	return nil
}

// Boot registers the auth routes.
func (m *AuthModule) Boot(_ context.Context, g *echo.Group, reg *registry.Registry) error {
	cfg := reg.Config()
	sessions := registry.MustGet(reg, registry.SessionsKey)

	h := handlers.NewAuthHandler(
		registry.MustGet(reg, registry.ViewsKey),
		registry.MustGet(reg, registry.GatewayKey),
		sessions,
		registry.MustGet(reg, registry.RendererKey),
		registry.MustGet(reg, registry.PublisherKey),
		handlers.AuthOptions{
			LandingPath: cfg.GetLandingPath(),
			SignInPath:  cfg.GetSignInPath(),
			CallbackURL: strings.TrimRight(cfg.GetAppBaseURL(), "/") + cfg.GetLandingPath(),
		},
	)

	slog.Info("Booting AuthModule: Setting up routes...")
	guest := middleware.RedirectIfAuthenticated(sessions, cfg.GetLandingPath())
	limit := middleware.RateLimiter(cfg.GetRateLimitPerMinute())

	g.GET("/sign-in", h.SignInGet, guest)
	g.POST("/sign-in", h.SignInPost, limit)
	g.POST("/sign-in/social", h.SocialPost(forms.KindSignIn), limit)

	g.GET("/sign-up", h.SignUpGet, guest)
	g.POST("/sign-up", h.SignUpPost, limit)
	g.POST("/sign-up/social", h.SocialPost(forms.KindSignUp), limit)

	g.POST("/sign-out", h.SignOutPost)
	g.GET(gateway.CallbackPath, h.SocialCallbackGet)
	return nil
}

// Run consumes audit events until ctx is done.
func (m *AuthModule) Run(ctx context.Context) error {
	if m.subscriber == nil {
		<-ctx.Done()
		return nil
	}
	return m.subscriber.Run(ctx)
}
