// Package httpd implements the HTTP API server command.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/leadscout/cmd/common"
	"github.com/jonesrussell/leadscout/internal/api"
	"github.com/jonesrussell/leadscout/internal/database"
	"github.com/jonesrussell/leadscout/internal/logger"
)

const shutdownTimeout = 30 * time.Second

// Command returns the httpd command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Serve the discovery HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.Build(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.ConnectDatabase(); err != nil {
				return err
			}

			if err := deps.Sweeper.Start(); err != nil {
				return fmt.Errorf("failed to start registry sweeper: %w", err)
			}
			defer deps.Sweeper.Stop()

			server := api.NewServer(
				deps.Logger,
				deps.Orchestrator,
				deps.Dedup,
				deps.Classifier,
				deps.Registry,
				database.NewAgentRepository(deps.DB),
				deps.DB,
				deps.PromRegistry,
			)

			srv := &http.Server{
				Addr:         deps.Config.Server.Address,
				Handler:      server.Router(),
				ReadTimeout:  deps.Config.Server.ReadTimeout,
				WriteTimeout: deps.Config.Server.WriteTimeout,
				IdleTimeout:  deps.Config.Server.IdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				deps.Logger.Info("HTTP server listening",
					logger.String("address", srv.Addr),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case sig := <-sigCh:
				deps.Logger.Info("Shutdown signal received", logger.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}
