package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/nfrund/durian/internal/domain"
)

// MemoryOptions configures a MemoryGateway.
type MemoryOptions struct {
	// SessionTTL is how long minted sessions stay valid. Defaults to 7 days.
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost. Tests lower it to MinCost.
	BcryptCost int
	// ClientIDs maps providers to OAuth client IDs. Providers without an
	// entry resolve to "Provider not found".
	ClientIDs map[domain.SocialProvider]string
	// RedirectURL is the OAuth callback registered with every provider.
	RedirectURL string
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

type memoryUser struct {
	user domain.User
	hash []byte
}

// MemoryGateway is an in-process stand-in for the external auth service,
// used for local development and integration tests.
type MemoryGateway struct {
	mu       sync.RWMutex
	users    map[string]memoryUser
	sessions map[string]*domain.Session
	opts     MemoryOptions
}

// NewMemory creates an empty MemoryGateway.
func NewMemory(opts MemoryOptions) *MemoryGateway {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MemoryGateway{
		users:    make(map[string]memoryUser),
		sessions: make(map[string]*domain.Session),
		opts:     opts,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidCredentials() error {
	return &domain.GatewayError{
		Status:  http.StatusUnauthorized,
		Code:    "INVALID_EMAIL_OR_PASSWORD",
		Message: "Invalid email or password",
		Err:     domain.ErrInvalidCredentials,
	}
}

func unauthenticated() error {
	return &domain.GatewayError{
		Status:  http.StatusUnauthorized,
		Code:    "UNAUTHENTICATED",
		Message: "No active session",
		Err:     domain.ErrUnauthenticated,
	}
}

func (g *MemoryGateway) SignInWithCredentials(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	rec, ok := g.users[normalizeEmail(creds.Email)]
	g.mu.RUnlock()
	if !ok {
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(creds.Password)); err != nil {
		return nil, invalidCredentials()
	}
	return g.mint(rec.user), nil
}

func (g *MemoryGateway) SignUpWithCredentials(ctx context.Context, reg domain.Registration) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), g.opts.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, &domain.GatewayError{
				Status:  http.StatusUnprocessableEntity,
				Code:    "PASSWORD_TOO_LONG",
				Message: "Password too long",
				Err:     err,
			}
		}
		return nil, fmt.Errorf("gateway: hash password: %w", err)
	}

	email := normalizeEmail(reg.Email)
	g.mu.Lock()
	if _, exists := g.users[email]; exists {
		g.mu.Unlock()
		return nil, &domain.GatewayError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "USER_ALREADY_EXISTS",
			Message: "User already exists",
			Err:     domain.ErrUserAlreadyExists,
		}
	}
	user := domain.User{ID: uuid.NewString(), Name: strings.TrimSpace(reg.Name), Email: email}
	g.users[email] = memoryUser{user: user, hash: hash}
	g.mu.Unlock()

	return g.mint(user), nil
}

func (g *MemoryGateway) SignInWithSocialProvider(ctx context.Context, provider domain.SocialProvider, callbackURL string) (*domain.SocialRedirect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clientID := g.opts.ClientIDs[provider]
	endpoint, known := providerEndpoint(provider)
	if !known || clientID == "" {
		return nil, &domain.GatewayError{
			Status:  http.StatusNotFound,
			Code:    "PROVIDER_NOT_FOUND",
			Message: "Provider not found",
			Err:     domain.ErrUnknownProvider,
		}
	}

	cfg := oauth2.Config{
		ClientID:    clientID,
		Endpoint:    endpoint,
		RedirectURL: g.opts.RedirectURL,
		Scopes:      providerScopes(provider),
	}
	// The state doubles as the post-login destination so the callback can
	// resume where the user started.
	state := uuid.NewString()
	if callbackURL != "" {
		state += ":" + callbackURL
	}
	return &domain.SocialRedirect{URL: cfg.AuthCodeURL(state)}, nil
}

func (g *MemoryGateway) SignOut(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[token]; !ok {
		return unauthenticated()
	}
	delete(g.sessions, token)
	return nil
}

func (g *MemoryGateway) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[token]
	if !ok {
		return nil, unauthenticated()
	}
	if sess.Expired(g.opts.Now()) {
		delete(g.sessions, token)
		return nil, unauthenticated()
	}
	cp := *sess
	return &cp, nil
}

// UserCount is the number of registered users.
func (g *MemoryGateway) UserCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.users)
}

func (g *MemoryGateway) mint(user domain.User) *domain.Session {
	sess := &domain.Session{
		Token:     uuid.NewString(),
		ExpiresAt: g.opts.Now().Add(g.opts.SessionTTL),
		User:      user,
	}
	g.mu.Lock()
	g.sessions[sess.Token] = sess
	g.mu.Unlock()
	cp := *sess
	return &cp
}

func providerEndpoint(p domain.SocialProvider) (oauth2.Endpoint, bool) {
	switch p {
	case domain.ProviderGitHub:
		return endpoints.GitHub, true
	case domain.ProviderGoogle:
		return endpoints.Google, true
	default:
		return oauth2.Endpoint{}, false
	}
}

func providerScopes(p domain.SocialProvider) []string {
	switch p {
	case domain.ProviderGitHub:
		return []string{"read:user", "user:email"}
	case domain.ProviderGoogle:
		return []string{"openid", "email", "profile"}
	default:
		return nil
	}
}
