// Package assets serves the static files under /static. The embedded files
// can be overlaid by a directory on disk, which is handy while iterating on
// CSS without rebuilding.
package assets

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"github.com/nfrund/durian/web"
)

// Prefix is the URL path the assets are mounted on.
const Prefix = "/static"

// New layers overlay over base. Files present in overlay win. Both layers
// are read-only; a nil overlay serves base alone.
func New(base fs.FS, overlay afero.Fs) afero.Fs {
	embedded := afero.FromIOFS{FS: base}
	if overlay == nil {
		return embedded
	}
	return afero.NewCopyOnWriteFs(embedded, afero.NewReadOnlyFs(overlay))
}

// FromDir builds the asset filesystem from the embedded static files plus
// an optional directory on disk.
func FromDir(dir string) (afero.Fs, error) {
	base, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("open embedded assets: %w", err)
	}
	if dir == "" {
		return New(base, nil), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir %q is not a directory", dir)
	}
	return New(base, afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// Register mounts fsys under Prefix behind the given middleware.
func Register(e *echo.Echo, fsys afero.Fs, m ...echo.MiddlewareFunc) {
	g := e.Group(Prefix, m...)
	g.StaticFS("/", afero.NewIOFS(fsys))
}

// CacheControl sets a short public cache lifetime on asset responses.
func CacheControl(maxAge int) echo.MiddlewareFunc {
	value := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodGet || c.Request().Method == http.MethodHead {
				c.Response().Header().Set("Cache-Control", value)
			}
			return next(c)
		}
	}
}
