package main

// @title           DocPay Backend API
// @version         1.0
// @description     Payment-to-document delivery reconciliation: Stripe checkout, webhooks, file recovery and draft sweeping.

// @host      localhost:8888
// @BasePath  /

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/fatflowers/docpay/internal/app"
)

var Version = "dev"

func main() {
	var configFile string
	rootCmd := &cobra.Command{
		Use:     "api",
		Short:   "Serve the document checkout, webhook and admin API",
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				// pkg/config reads the file path from the environment
				if err := os.Setenv("APP_CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			return serve()
		},
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (overrides APP_CONFIG_FILE)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve runs the app until SIGINT/SIGTERM, which fx turns into a Done signal.
func serve() error {
	a := fx.New(app.Module)
	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}

	sig := <-a.Done()

	stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancel2()
	if err := a.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop app after %s: %w", sig, err)
	}
	return nil
}
