package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Provider is the read-only view of the configuration handed to modules.
type Provider interface {
	GetAddr() string
	GetAppBaseURL() string
	GetSessionSecret() string
	GetLogFormat() string
	GetLogLevel() string
	GetLogFile() string
	GetAuthGateway() string
	GetAuthBaseURL() string
	GetAuthTimeout() time.Duration
	GetLandingPath() string
	GetSignInPath() string
	GetGitHubClientID() string
	GetGoogleClientID() string
	GetRateLimitPerMinute() int
	GetViewIdleTTL() time.Duration
	GetViewMax() int
	GetStaticDir() string
}

// Config holds all configuration for the application.
type Config struct {
	Addr          string `env:"APP_ADDR" envDefault:":8080" validate:"required"`
	AppBaseURL    string `env:"APP_BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	SessionSecret string `env:"SESSION_SECRET" validate:"required,min=16"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"debug" validate:"oneof=debug info warn error"`
	LogFile   string `env:"LOG_FILE"`

	AuthGateway string        `env:"AUTH_GATEWAY" envDefault:"memory" validate:"oneof=memory http"`
	AuthBaseURL string        `env:"AUTH_BASE_URL" validate:"omitempty,url"`
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	LandingPath string `env:"LANDING_PATH" envDefault:"/" validate:"startswith=/"`
	SignInPath  string `env:"SIGN_IN_PATH" envDefault:"/sign-in" validate:"startswith=/"`

	GitHubClientID string `env:"GITHUB_CLIENT_ID"`
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20" validate:"gte=0"`
	ViewIdleTTL        time.Duration `env:"VIEW_IDLE_TTL" envDefault:"15m" validate:"gt=0"`
	ViewMax            int           `env:"VIEW_MAX" envDefault:"10000" validate:"gt=0"`

	// StaticDir overlays the embedded assets with files from disk.
	StaticDir string `env:"STATIC_DIR"`
}

var validate = validator.New()

// Load reads an optional .env file, parses the environment and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		slog.Debug("No .env file found, relying on environment variables")
	}
	return Parse()
}

// Parse builds a Config from the current environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AuthGateway == "http" && c.AuthBaseURL == "" {
		return errors.New("invalid configuration: AUTH_BASE_URL is required when AUTH_GATEWAY=http")
	}
	return nil
}

func (c *Config) GetAddr() string { return c.Addr }
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }
func (c *Config) GetSessionSecret() string { return c.SessionSecret }
func (c *Config) GetLogFormat() string { return c.LogFormat }
func (c *Config) GetLogLevel() string { return c.LogLevel }
func (c *Config) GetLogFile() string { return c.LogFile }
func (c *Config) GetAuthGateway() string { return c.AuthGateway }
func (c *Config) GetAuthBaseURL() string { return c.AuthBaseURL }
func (c *Config) GetAuthTimeout() time.Duration { return c.AuthTimeout }
func (c *Config) GetLandingPath() string { return c.LandingPath }
func (c *Config) GetSignInPath() string { return c.SignInPath }
func (c *Config) GetGitHubClientID() string { return c.GitHubClientID }
func (c *Config) GetGoogleClientID() string { return c.GoogleClientID }
func (c *Config) GetRateLimitPerMinute() int { return c.RateLimitPerMinute }
func (c *Config) GetViewIdleTTL() time.Duration { return c.ViewIdleTTL }
func (c *Config) GetViewMax() int { return c.ViewMax }
func (c *Config) GetStaticDir() string { return c.StaticDir }
