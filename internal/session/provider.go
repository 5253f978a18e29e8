// Package session keeps the gateway-issued session token in a signed cookie
// and resolves it to the current user.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"

	"github.com/nfrund/durian/internal/domain"
)

// CookieName is the gorilla session holding the auth state.
const CookieName = "durian-session"

const (
	keyToken     = "token"
	keyExpiresAt = "expires_at"
	keyCheckedAt = "checked_at"
	keyUserID    = "user_id"
	keyUserName  = "user_name"
	keyUserEmail = "user_email"
	keyUserImage = "user_image"
)

// Options configures a Provider.
type Options struct {
	// Revalidate is how long a cached user is trusted before the gateway is
	// asked again. Defaults to 5 minutes.
	Revalidate time.Duration
	// MaxAge is the cookie lifetime when the gateway reports no expiry.
	// Defaults to 7 days.
	MaxAge time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
	Now    func() time.Time
}

// Provider is the injected source of the current session.
type Provider struct {
	gw   domain.AuthGateway
	opts Options
	// sfg collapses concurrent revalidations of the same token.
	sfg singleflight.Group
}

func NewProvider(gw domain.AuthGateway, opts Options) *Provider {
	if opts.Revalidate <= 0 {
		opts.Revalidate = 5 * time.Minute
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{gw: gw, opts: opts}
}

func (p *Provider) load(c echo.Context) (*sessions.Session, error) {
	sess, err := echosession.Get(CookieName, c)
	if err != nil {
		return nil, fmt.Errorf("load session cookie: %w", err)
	}
	return sess, nil
}

func stringValue(sess *sessions.Session, key string) string {
	v, _ := sess.Values[key].(string)
	return v
}

func int64Value(sess *sessions.Session, key string) int64 {
	v, _ := sess.Values[key].(int64)
	return v
}

// Token returns the raw session token, or "" when signed out.
func (p *Provider) Token(c echo.Context) string {
	sess, err := p.load(c)
	if err != nil {
		return ""
	}
	return stringValue(sess, keyToken)
}

// Current resolves the session of the request. It returns
// domain.ErrUnauthenticated when there is none or the gateway rejected the
// stored token, in which case the cookie is cleared.
func (p *Provider) Current(c echo.Context) (*domain.Session, error) {
	sess, err := p.load(c)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	token := stringValue(sess, keyToken)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	now := p.opts.Now()
	cached := fromValues(sess)
	checkedAt := time.Unix(int64Value(sess, keyCheckedAt), 0)
	if cached.User.ID != "" && !cached.Expired(now) && now.Sub(checkedAt) < p.opts.Revalidate {
		return cached, nil
	}

	v, err := p.revalidate(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			if clearErr := p.Clear(c); clearErr != nil {
				return nil, clearErr
			}
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	shared, _ := v.(*domain.Session)
	if shared == nil {
		return nil, domain.ErrUnauthenticated
	}
	// Shared between callers of the same flight; copy before mutating.
	fresh := *shared
	if fresh.Token == "" {
		fresh.Token = token
	}
	if err := p.Establish(c, &fresh); err != nil {
		return nil, err
	}
	return &fresh, nil
}

// revalidate asks the gateway for the session behind token. Callers with
// the same token share one call, which is detached from their contexts so
// one caller going away does not fail the others; each caller still stops
// waiting when its own ctx is done.
func (p *Provider) revalidate(ctx context.Context, token string) (any, error) {
	ch := p.sfg.DoChan(token, func() (interface{}, error) {
		return p.gw.CurrentSession(context.WithoutCancel(ctx), token)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Establish stores s in the cookie after a successful sign-in or sign-up.
func (p *Provider) Establish(c echo.Context, s *domain.Session) error {
	if s == nil || s.Token == "" {
		return errors.New("establish session: missing token")
	}
	sess, err := p.load(c)
	if err != nil {
		return err
	}

	now := p.opts.Now()
	maxAge := p.opts.MaxAge
	if !s.ExpiresAt.IsZero() {
		maxAge = s.ExpiresAt.Sub(now)
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   p.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	var expiresAt int64
	if !s.ExpiresAt.IsZero() {
		expiresAt = s.ExpiresAt.Unix()
	}
	sess.Values[keyToken] = s.Token
	sess.Values[keyExpiresAt] = expiresAt
	sess.Values[keyCheckedAt] = now.Unix()
	sess.Values[keyUserID] = s.User.ID
	sess.Values[keyUserName] = s.User.Name
	sess.Values[keyUserEmail] = s.User.Email
	sess.Values[keyUserImage] = s.User.Image

	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

// Clear removes the session cookie.
func (p *Provider) Clear(c echo.Context) error {
	sess, err := p.load(c)
	if err != nil {
		return err
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("clear session cookie: %w", err)
	}
	return nil
}

func fromValues(sess *sessions.Session) *domain.Session {
	s := &domain.Session{
		Token: stringValue(sess, keyToken),
		User: domain.User{
			ID:    stringValue(sess, keyUserID),
			Name:  stringValue(sess, keyUserName),
			Email: stringValue(sess, keyUserEmail),
			Image: stringValue(sess, keyUserImage),
		},
	}
	if exp := int64Value(sess, keyExpiresAt); exp > 0 {
		s.ExpiresAt = time.Unix(exp, 0)
	}
	return s
}
