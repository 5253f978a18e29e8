// Package module defines how features plug into the server. Each module
// is registered, then booted on the root route group, then shut down in
// reverse order when the server stops.
package module

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/durian/internal/registry"
)

type Module interface {
	Name() string

	// Register runs before any module boots. Modules resolve the core
	// services they need here and may publish their own.
	Register(reg *registry.Registry) error

	// Boot mounts the module's routes on router.
	Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error

	// Shutdown runs after the HTTP listener has drained.
	Shutdown(ctx context.Context) error
}

// Runner is implemented by modules with background work, such as the audit
// subscriber. Run blocks until ctx is done and is started next to the HTTP
// listener.
type Runner interface {
	Run(ctx context.Context) error
}

// BaseModule can be embedded to skip the phases a module does not use.
type BaseModule struct{}

func (BaseModule) Register(*registry.Registry) error { return nil }

func (BaseModule) Boot(context.Context, *echo.Group, *registry.Registry) error { return nil }

func (BaseModule) Shutdown(context.Context) error { return nil }
