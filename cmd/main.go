package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akylbek/payment-system/x402-pay/internal/config"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "x402-pay",
		Short:         "Pay-to-access municipal services over the x402 flow",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(payCmd())
	rootCmd.AddCommand(servicesCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and initializes telemetry.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if err := telemetry.InitTelemetry(telemetry.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.JaegerEndpoint,
		LogLevel:    cfg.LogLevel,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return cfg, func() { _ = telemetry.Shutdown(context.Background()) }, nil
}
