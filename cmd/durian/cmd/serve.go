package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nfrund/durian/internal/app"
	"github.com/nfrund/durian/internal/assets"
	"github.com/nfrund/durian/internal/config"
	"github.com/nfrund/durian/internal/gateway"
	"github.com/nfrund/durian/internal/logging"
	"github.com/nfrund/durian/internal/server"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the web server and blocks until SIGINT or SIGTERM.
In-flight requests are drained before open form views are closed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address, overrides APP_ADDR")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}

	logger := logging.New(logging.Options{
		Format: cfg.GetLogFormat(),
		Level:  cfg.GetLogLevel(),
		File:   cfg.GetLogFile(),
	})

	gw, err := gateway.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("auth gateway: %w", err)
	}

	fsys, err := assets.FromDir(cfg.GetStaticDir())
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	s, err := server.New(server.Dependencies{
		Config:  cfg,
		Gateway: gw,
		Assets:  fsys,
	})
	if err != nil {
		return err
	}

	if err := s.InitModules(ctx, app.NewModules()); err != nil {
		return fmt.Errorf("init modules: %w", err)
	}

	logger.Info("Booting durian", slog.String("version", version), slog.String("gateway", cfg.GetAuthGateway()))
	return s.Run(ctx)
}
