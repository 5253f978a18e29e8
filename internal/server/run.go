package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/nfrund/durian/internal/module"
)

// Run serves HTTP on the configured address alongside the view sweeper and
// every module.Runner. It returns once ctx is done and everything has shut
// down, or when one of them fails.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Views outlive the listener so requests drained during shutdown can
	// still finish their gateway calls.
	viewsCtx, stopViews := context.WithCancel(context.Background())
	defer stopViews()

	g.Go(func() error {
		slog.Info("Starting server", "addr", s.Cfg.GetAddr())
		if err := s.E.Start(s.Cfg.GetAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.Views.Run(viewsCtx)
	})
	for _, m := range s.modules {
		if r, ok := m.(module.Runner); ok {
			g.Go(func() error {
				if err := r.Run(gctx); err != nil {
					return fmt.Errorf("module %s: %w", m.Name(), err)
				}
				return nil
			})
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		defer stopViews()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops the listener, the modules and the event bus within
// shutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	slog.Info("Shutting down server")
	var errs []error
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.shutdownModules(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}
	return errors.Join(errs...)
}
