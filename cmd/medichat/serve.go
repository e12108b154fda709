package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medichat/internal/config"
	medihttp "github.com/fyrsmithlabs/medichat/internal/http"
	"github.com/fyrsmithlabs/medichat/internal/session"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API",
		Long: `Start the MediChat HTTP server.

Examples:
  # Listen on the configured host and port
  medichat serve

  # Override the port through the environment
  MEDICHAT_SERVER_HTTP_PORT=9090 medichat serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, "")
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

// runServe serves until ctx is cancelled, then shuts down within the
// configured timeout.
func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := session.NewManager(a.deps, cfg.Server.SessionIdleTTL)
	if err != nil {
		return err
	}
	srv, err := medihttp.NewServer(manager, a.deps.Ingestion, a.dispatcher, a.logger, &medihttp.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, a.modelInfo())
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	go manager.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	a.logger.Info(ctx, "medichat ready",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.Duration("session_idle_ttl", cfg.Server.SessionIdleTTL),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := <-errCh; err != nil {
		return err
	}
	a.logger.Info(context.Background(), "server shutdown complete")
	return nil
}
