package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/fatflowers/docpay/internal/app"
	"github.com/fatflowers/docpay/internal/app/service/sweeper"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/tool"
	"github.com/fatflowers/docpay/pkg/types"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "sweeper",
		Short:   "Reconcile stale checkout sessions and delete abandoned drafts",
		Version: Version,
	}
	rootCmd.PersistentFlags().Bool("compact", false, "Print single-line JSON")

	rootCmd.AddCommand(sweepCmd("report", "List drafts a run would delete and the ones it would keep", func(ctx context.Context, s *sweeper.Service) (any, error) {
		return s.Report(ctx)
	}))
	rootCmd.AddCommand(sweepCmd("run", "Delete one batch of abandoned drafts judged safe", func(ctx context.Context, s *sweeper.Service) (any, error) {
		return s.Run(ctx)
	}))
	rootCmd.AddCommand(sweepCmd("sync", "Settle stale pending sessions against Stripe", func(ctx context.Context, s *sweeper.Service) (any, error) {
		return s.SyncSessions(ctx)
	}))
	rootCmd.AddCommand(sweepCmd("tick", "Sync sessions, then run one sweep", func(ctx context.Context, s *sweeper.Service) (any, error) {
		return map[string]bool{"ok": true}, s.Tick(ctx)
	}))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sweepCmd(use, short string, fn func(context.Context, *sweeper.Service) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			compact, _ := cmd.Flags().GetBool("compact")
			return withSweeper(cmd.Context(), func(ctx context.Context, s *sweeper.Service) error {
				out, err := fn(ctx, s)
				if err != nil {
					return err
				}
				return printJSON(out, compact)
			})
		},
	}
}

// withSweeper boots the app without the HTTP server or the in-process schedule.
func withSweeper(parent context.Context, fn func(context.Context, *sweeper.Service) error) error {
	if parent == nil {
		parent = context.Background()
	}
	var s *sweeper.Service
	a := fx.New(app.Core, fx.NopLogger, fx.Populate(&s))
	if err := a.Err(); err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	startCtx, cancel := context.WithTimeout(parent, app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
		defer cancel()
		_ = a.Stop(stopCtx)
	}()

	ctx := logctx.WithTraceID(parent, tool.GenerateUUIDV7())
	ctx = logctx.WithActor(ctx, types.ActorSweeper)
	return fn(ctx, s)
}

func printJSON(v any, compact bool) error {
	enc := json.NewEncoder(os.Stdout)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
