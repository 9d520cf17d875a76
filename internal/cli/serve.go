package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/lanequeue/internal/api"
	"github.com/mcoot/lanequeue/internal/factory"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the queue service: periodic passes plus the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := cfg.loadAppConfig()
			if err != nil {
				return err
			}

			logger := newLogger(appCfg.LogLevel)
			slog.SetDefault(logger)

			app, err := factory.New(appCfg, logger)
			if err != nil {
				logger.Error("failed to create application", slog.String("error", err.Error()))
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("shutdown error", slog.String("error", err.Error()))
				}
			}()

			router := api.NewRouter(api.RouterConfig{
				Logger:       logger,
				Queue:        app.Queue,
				PlayerStates: app.PlayerStates,
				Ownership:    app.Ownership,
				Channels:     app.Channels,
				Scheduler:    app.Scheduler,
				Hub:          app.Hub,
				Bots:         app.Bots,
				Gatherer:     app.Registry,
			})

			serverConfig := api.DefaultServerConfig()
			serverConfig.Port = appCfg.HTTPPort
			server := api.NewServer(router, serverConfig, logger)
			server.OnShutdown(app.Hub.Close)

			if err := app.Scheduler.Start(); err != nil {
				return err
			}

			// Handle graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			logger.Info("server started",
				slog.String("addr", server.Addr()),
				slog.String("storage", appCfg.StorageType),
			)

			select {
			case err := <-errCh:
				if err != nil {
					logger.Error("server error", slog.String("error", err.Error()))
					return err
				}
			case <-ctx.Done():
				logger.Info("shutdown signal received")
				if err := server.Shutdown(context.Background()); err != nil {
					return err
				}
			}

			logger.Info("server stopped")
			return nil
		},
	}
}
