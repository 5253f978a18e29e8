package app

import (
	"github.com/nfrund/durian/internal/module"
	"github.com/nfrund/durian/internal/modules/auth"
	"github.com/nfrund/durian/internal/modules/dashboard"
)

// NewModules returns the list of all active modules for the application.
// This is the single source of truth for which features are enabled.
func NewModules() []module.Module {
	return []module.Module{
		auth.New(),
		dashboard.New(),
	}
}
