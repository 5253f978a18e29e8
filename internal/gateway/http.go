package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nfrund/durian/internal/domain"
)

const maxResponseBytes = 1 << 20

// HTTPGateway talks JSON to an external auth service mounted at baseURL
// (for example "https://auth.example.com/api/auth").
type HTTPGateway struct {
	baseURL *url.URL
	client  *http.Client
	timeout time.Duration
}

// NewHTTP creates an HTTPGateway. A nil client falls back to a fresh
// http.Client; timeout bounds every call and 0 disables it.
func NewHTTP(baseURL string, timeout time.Duration, client *http.Client) (*HTTPGateway, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway: base url %q must be absolute", baseURL)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPGateway{baseURL: parsed, client: client, timeout: timeout}, nil
}

type userPayload struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

func (u userPayload) toDomain() domain.User {
	user := domain.User{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.Image != nil {
		user.Image = *u.Image
	}
	return user
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type sessionResponse struct {
	Session *struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	} `json:"session"`
	User *userPayload `json:"user"`
}

type socialRequest struct {
	Provider    domain.SocialProvider `json:"provider"`
	CallbackURL string                `json:"callbackURL,omitempty"`
}

type socialResponse struct {
	URL      string `json:"url"`
	Redirect bool   `json:"redirect"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *HTTPGateway) SignInWithCredentials(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	var out authResponse
	if err := g.do(ctx, http.MethodPost, "/sign-in/email", "", creds, &out); err != nil {
		return nil, err
	}
	return &domain.Session{Token: out.Token, User: out.User.toDomain()}, nil
}

func (g *HTTPGateway) SignUpWithCredentials(ctx context.Context, reg domain.Registration) (*domain.Session, error) {
	var out authResponse
	if err := g.do(ctx, http.MethodPost, "/sign-up/email", "", reg, &out); err != nil {
		return nil, err
	}
	return &domain.Session{Token: out.Token, User: out.User.toDomain()}, nil
}

func (g *HTTPGateway) SignInWithSocialProvider(ctx context.Context, provider domain.SocialProvider, callbackURL string) (*domain.SocialRedirect, error) {
	var out socialResponse
	req := socialRequest{Provider: provider, CallbackURL: callbackURL}
	if err := g.do(ctx, http.MethodPost, "/sign-in/social", "", req, &out); err != nil {
		return nil, err
	}
	return &domain.SocialRedirect{URL: out.URL}, nil
}

func (g *HTTPGateway) SignOut(ctx context.Context, token string) error {
	return g.do(ctx, http.MethodPost, "/sign-out", token, struct{}{}, nil)
}

func (g *HTTPGateway) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	var out sessionResponse
	if err := g.do(ctx, http.MethodGet, "/get-session", token, nil, &out); err != nil {
		return nil, err
	}
	if out.Session == nil || out.User == nil {
		return nil, &domain.GatewayError{
			Status:  http.StatusUnauthorized,
			Code:    "UNAUTHENTICATED",
			Message: "No active session",
			Err:     domain.ErrUnauthenticated,
		}
	}
	sessToken := out.Session.Token
	if sessToken == "" {
		sessToken = token
	}
	return &domain.Session{
		Token:     sessToken,
		ExpiresAt: out.Session.ExpiresAt,
		User:      out.User.toDomain(),
	}, nil
}

func (g *HTTPGateway) endpoint(path string) string {
	u := *g.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (g *HTTPGateway) do(ctx context.Context, method, path, token string, in, out any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gateway: marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("gateway: build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &domain.GatewayError{Code: "TIMEOUT", Message: "The authentication service did not respond in time", Err: err}
		}
		return &domain.GatewayError{Code: "UNREACHABLE", Message: "The authentication service is unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.GatewayError{Status: resp.StatusCode, Code: "READ_FAILED", Message: "Could not read the authentication service response", Err: err}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.GatewayError{Status: resp.StatusCode, Code: "DECODE_FAILED", Message: "Unexpected response from the authentication service", Err: err}
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var payload errorResponse
	_ = json.Unmarshal(raw, &payload)

	gwErr := &domain.GatewayError{Status: status, Code: payload.Code, Message: payload.Message}
	if gwErr.Message == "" {
		gwErr.Message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		gwErr.Err = domain.ErrUnauthenticated
		if payload.Code == "INVALID_EMAIL_OR_PASSWORD" {
			gwErr.Err = domain.ErrInvalidCredentials
		}
	case strings.Contains(payload.Code, "ALREADY_EXISTS"):
		gwErr.Err = domain.ErrUserAlreadyExists
	}
	return gwErr
}
