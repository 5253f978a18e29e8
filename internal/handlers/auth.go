package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/audit"
	"github.com/nfrund/durian/internal/domain"
	"github.com/nfrund/durian/internal/forms"
	"github.com/nfrund/durian/internal/metrics"
	"github.com/nfrund/durian/internal/middleware"
	"github.com/nfrund/durian/internal/pubsub"
	"github.com/nfrund/durian/internal/rendering"
	"github.com/nfrund/durian/internal/session"
	"github.com/nfrund/durian/internal/view"
)

// AuthOptions holds the navigation targets of the auth forms.
type AuthOptions struct {
	LandingPath string
	SignInPath  string
	// CallbackURL is where the auth service returns the browser after a
	// social sign-in or email verification.
	CallbackURL string
}

// AuthHandler serves the sign-in and sign-up views. Each rendered form is
// backed by a controller mounted in views and addressed by the hidden
// view_id field.
type AuthHandler struct {
	views    *forms.Views
	gw       domain.AuthGateway
	sessions *session.Provider
	renderer rendering.Renderer
	events   pubsub.Publisher
	opts     AuthOptions
}

// NewAuthHandler creates a new AuthHandler. events may be nil.
func NewAuthHandler(views *forms.Views, gw domain.AuthGateway, sessions *session.Provider, renderer rendering.Renderer, events pubsub.Publisher, opts AuthOptions) *AuthHandler {
	if opts.LandingPath == "" {
		opts.LandingPath = "/"
	}
	if opts.SignInPath == "" {
		opts.SignInPath = "/sign-in"
	}
	return &AuthHandler{
		views:    views,
		gw:       gw,
		sessions: sessions,
		renderer: renderer,
		events:   events,
		opts:     opts,
	}
}

// mount creates and registers a fresh controller for kind.
func (h *AuthHandler) mount(kind forms.Kind) (*forms.Controller, error) {
	schema, ok := forms.SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("no schema for form %q", kind)
	}
	ctrl := forms.NewController(uuid.NewString(), schema, h.gw, forms.Options{
		LandingPath: h.opts.LandingPath,
		CallbackURL: h.opts.CallbackURL,
		OnOutcome:   h.recordOutcome,
	})
	h.views.Mount(ctrl)
	return ctrl, nil
}

// resolve finds the controller a post belongs to. Unknown, expired or
// mismatched views get a fresh controller so the submission still goes
// through.
func (h *AuthHandler) resolve(c echo.Context, kind forms.Kind, viewID string) (*forms.Controller, error) {
	if viewID != "" {
		if ctrl, ok := h.views.Get(viewID); ok && ctrl.Kind() == kind {
			return ctrl, nil
		}
		middleware.FromContext(c.Request().Context()).Debug("View not mounted, starting a new one", "view_id", viewID, "form", kind)
	}
	return h.mount(kind)
}

// edit stages the posted fields ahead of a submit. A view that already
// redirected is replaced by a fresh one. While a call is in flight the
// fields are left alone and forms.ErrSubmitInFlight is returned with the
// controller.
func (h *AuthHandler) edit(c echo.Context, kind forms.Kind, req AuthFormRequest) (*forms.Controller, error) {
	ctrl, err := h.resolve(c, kind, req.ViewID)
	if err != nil {
		return nil, err
	}
	err = ctrl.Stage(req.Fields())
	switch {
	case err == nil:
		return ctrl, nil
	case errors.Is(err, forms.ErrSubmitInFlight):
		return ctrl, err
	case !errors.Is(err, forms.ErrViewClosed):
		return nil, err
	}

	h.views.Unmount(ctrl.ID())
	if ctrl, err = h.mount(kind); err != nil {
		return nil, err
	}
	if err := ctrl.Stage(req.Fields()); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func (h *AuthHandler) renderGet(c echo.Context, kind forms.Kind) error {
	ctrl, err := h.mount(kind)
	if err != nil {
		return err
	}
	return h.renderer.RenderPage(c, http.StatusOK, view.AuthPage(ctrl.Snapshot(), view.GetFlashData(c)))
}

// SignInGet renders the sign-in page (GET /sign-in).
func (h *AuthHandler) SignInGet(c echo.Context) error {
	return h.renderGet(c, forms.KindSignIn)
}

// SignUpGet renders the sign-up page (GET /sign-up).
func (h *AuthHandler) SignUpGet(c echo.Context) error {
	return h.renderGet(c, forms.KindSignUp)
}

// SignInPost handles the sign-in form submission (POST /sign-in).
func (h *AuthHandler) SignInPost(c echo.Context) error {
	return h.submit(c, forms.KindSignIn)
}

// SignUpPost handles the sign-up form submission (POST /sign-up).
func (h *AuthHandler) SignUpPost(c echo.Context) error {
	return h.submit(c, forms.KindSignUp)
}

func (h *AuthHandler) submit(c echo.Context, kind forms.Kind) error {
	var req AuthFormRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}

	ctrl, err := h.edit(c, kind, req)
	if err != nil && !errors.Is(err, forms.ErrSubmitInFlight) {
		return err
	}

	var (
		pending *forms.Pending
		result  forms.ValidationResult
	)
	if err == nil {
		pending, result, err = ctrl.Submit()
	}
	switch {
	case errors.Is(err, forms.ErrSubmitInFlight):
		return renderForm(c, h.renderer, http.StatusConflict, ctrl.Snapshot())
	case err != nil:
		return err
	case !result.Valid:
		metrics.ValidationFailuresTotal.WithLabelValues(string(kind)).Inc()
		return renderForm(c, h.renderer, http.StatusUnprocessableEntity, ctrl.Snapshot())
	}
	return h.await(c, ctrl, pending)
}

// SocialPost starts a social sign-in from either form
// (POST /sign-in/social, /sign-up/social).
func (h *AuthHandler) SocialPost(kind forms.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SocialRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
		}
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown sign-in provider")
		}
		provider, err := domain.ParseSocialProvider(req.Provider)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown sign-in provider")
		}

		ctrl, err := h.edit(c, kind, req.AuthFormRequest)
		if err != nil && !errors.Is(err, forms.ErrSubmitInFlight) {
			return err
		}
		var pending *forms.Pending
		if err == nil {
			pending, err = ctrl.SubmitSocial(provider)
		}
		switch {
		case errors.Is(err, forms.ErrSubmitInFlight):
			return renderForm(c, h.renderer, http.StatusConflict, ctrl.Snapshot())
		case err != nil:
			return err
		}
		return h.await(c, ctrl, pending)
	}
}

// await blocks on the gateway call and turns its outcome into a response.
func (h *AuthHandler) await(c echo.Context, ctrl *forms.Controller, pending *forms.Pending) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	snap, err := pending.Wait(ctx)
	switch {
	case errors.Is(err, forms.ErrViewClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "The form was closed before the request finished. Please try again.")
	case err != nil:
		// The client went away; the controller still applies the outcome.
		logger.Debug("Stopped waiting for gateway call", "view_id", ctrl.ID(), "error", err)
		return err
	}

	if snap.Phase != forms.PhaseRedirecting {
		return renderForm(c, h.renderer, http.StatusUnauthorized, snap)
	}

	// The view is done either way. A success without a token (sign-up
	// pending email verification, social redirects) navigates signed out.
	h.views.Unmount(ctrl.ID())
	if snap.Session != nil && snap.Session.Token != "" {
		if err := h.sessions.Establish(c, snap.Session); err != nil {
			logger.Error("Failed to save session", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Could not sign you in. Please try again.")
		}
	}
	return middleware.Redirect(c, snap.RedirectTo)
}

// SignOutPost ends the session (POST /sign-out). The local cookie is cleared
// even when the auth service call fails.
func (h *AuthHandler) SignOutPost(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	var userID string
	if sess, err := h.sessions.Current(c); err == nil {
		userID = sess.User.ID
	}

	if token := h.sessions.Token(c); token != "" {
		err := h.gw.SignOut(ctx, token)
		if err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
			logger.Warn("Auth service sign-out failed", "error", err)
		}
		h.record(ctx, userID, audit.Event{Action: audit.ActionSignOut}, err)
	}

	if err := h.sessions.Clear(c); err != nil {
		logger.Error("Failed to clear session", "error", err)
	}
	view.SetFlashSuccess(c, "You have been signed out.")
	return middleware.Redirect(c, h.opts.SignInPath)
}

// SocialCallbackGet is where providers send the browser back when the
// memory gateway started the social sign-in (GET /auth/callback). The dev
// gateway holds no client secrets and cannot exchange the code, so the user
// lands on the sign-in page with an explanation.
func (h *AuthHandler) SocialCallbackGet(c echo.Context) error {
	logger := middleware.FromContext(c.Request().Context())
	if reason := c.QueryParam("error"); reason != "" {
		logger.Info("Social sign-in aborted by provider", "reason", reason)
		view.SetFlashError(c, "Social sign-in was cancelled.")
	} else {
		logger.Info("Social callback reached the development gateway")
		view.SetFlashError(c, "Social sign-in is not available with the development auth gateway. Please use your email and password.")
	}
	return middleware.Redirect(c, h.opts.SignInPath)
}

// recordOutcome observes every gateway completion of a mounted form.
func (h *AuthHandler) recordOutcome(o forms.Outcome) {
	var userID string
	if o.Session != nil {
		userID = o.Session.User.ID
	}
	h.record(context.Background(), userID, audit.Event{
		Action:   string(o.Action),
		Email:    o.Email,
		Provider: string(o.Provider),
	}, o.Err)
}

func (h *AuthHandler) record(ctx context.Context, userID string, ev audit.Event, err error) {
	ev.Outcome = audit.OutcomeSuccess
	if err != nil {
		ev.Outcome = audit.OutcomeFailure
		ev.Message = domain.ErrorMessage(err)
	}
	metrics.GatewayCallsTotal.WithLabelValues(ev.Action, ev.Outcome).Inc()
	audit.Publish(ctx, h.events, userID, ev)
}
