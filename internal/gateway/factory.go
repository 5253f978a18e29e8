package gateway

import (
	"fmt"
	"strings"

	"github.com/nfrund/durian/internal/config"
	"github.com/nfrund/durian/internal/domain"
)

// CallbackPath is where providers return the browser after a social sign-in
// started by the memory gateway.
const CallbackPath = "/auth/callback"

// FromConfig creates the gateway selected by AUTH_GATEWAY.
func FromConfig(cfg config.Provider) (domain.AuthGateway, error) {
	switch cfg.GetAuthGateway() {
	case "memory":
		return NewMemory(MemoryOptions{
			ClientIDs: map[domain.SocialProvider]string{
				domain.ProviderGitHub: cfg.GetGitHubClientID(),
				domain.ProviderGoogle: cfg.GetGoogleClientID(),
			},
			RedirectURL: strings.TrimRight(cfg.GetAppBaseURL(), "/") + CallbackPath,
		}), nil
	case "http":
		if cfg.GetAuthBaseURL() == "" {
			return nil, fmt.Errorf("auth gateway is 'http' but AUTH_BASE_URL is not set")
		}
		return NewHTTP(cfg.GetAuthBaseURL(), cfg.GetAuthTimeout(), nil)
	default:
		return nil, fmt.Errorf("unknown auth gateway: %s", cfg.GetAuthGateway())
	}
}
