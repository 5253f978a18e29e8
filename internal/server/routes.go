package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/nfrund/durian/internal/assets"
)

// registerCoreRoutes sets up the routes that belong to no module.
func (s *Server) registerCoreRoutes(fsys afero.Fs) error {
	if fsys == nil {
		var err error
		if fsys, err = assets.FromDir(s.Cfg.GetStaticDir()); err != nil {
			return err
		}
	}
	assets.Register(s.E, fsys, assets.CacheControl(3600))

	s.E.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	s.E.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return nil
}
