package domain

import (
	"context"
	"fmt"
	"strings"
)

// Credentials is the sign-in payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload. CallbackURL is where the auth service
// sends the browser after email verification.
type Registration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackURL,omitempty"`
}

// SocialProvider identifies an identity provider offered on the auth forms.
type SocialProvider string

const (
	ProviderGitHub SocialProvider = "github"
	ProviderGoogle SocialProvider = "google"
)

// SocialProviders lists the providers in the order the forms render them.
var SocialProviders = []SocialProvider{ProviderGitHub, ProviderGoogle}

// ParseSocialProvider maps a form value onto a known provider.
func ParseSocialProvider(raw string) (SocialProvider, error) {
	p := SocialProvider(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
	return p, nil
}

// Valid reports whether p is one of SocialProviders.
func (p SocialProvider) Valid() bool {
	for _, known := range SocialProviders {
		if p == known {
			return true
		}
	}
	return false
}

// Label is the button text for the provider.
func (p SocialProvider) Label() string {
	switch p {
	case ProviderGitHub:
		return "GitHub"
	case ProviderGoogle:
		return "Google"
	default:
		return string(p)
	}
}

// SocialRedirect is where the browser must go to continue a social sign-in.
type SocialRedirect struct {
	URL string `json:"url"`
}

// AuthGateway is the boundary to the external authentication service. Every
// method resolves to either a value or a *GatewayError.
type AuthGateway interface {
	SignInWithCredentials(ctx context.Context, creds Credentials) (*Session, error)
	SignUpWithCredentials(ctx context.Context, reg Registration) (*Session, error)
	SignInWithSocialProvider(ctx context.Context, provider SocialProvider, callbackURL string) (*SocialRedirect, error)
	SignOut(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, token string) (*Session, error)
}
