package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/api"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, shutdown, err := setup()
			if err != nil {
				return err
			}
			defer shutdown()

			telemetry.Logger.Info("Starting x402 payment service")

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if w := a.signer.Restore(cmd.Context()); w.Connected {
				telemetry.Logger.Info("Wallet connection restored", zap.String("address", w.Address))
			}

			r := api.NewRouter(api.Dependencies{
				Signer:      a.signer,
				Facilitator: a.facilitator,
				Session:     a.session,
				Catalog:     a.catalog,
				Recorder:    a.recorder,
				Gatherer:    a.registry,
			})

			// Setup HTTP server
			srv := &http.Server{
				Addr:    ":" + cfg.Port,
				Handler: r,
			}

			errCh := make(chan error, 1)
			go func() {
				telemetry.Logger.Info("x402 payment service starting", zap.String("port", cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			// Wait for interrupt signal for graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case err := <-errCh:
				telemetry.Logger.Error("Failed to start server", zap.Error(err))
				return err
			}

			telemetry.Logger.Info("Shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
			}

			telemetry.Logger.Info("Server exited")
			return nil
		},
	}
}
