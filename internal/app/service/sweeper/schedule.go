package sweeper

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/tool"
)

// Tick runs one full sweep: session sync first so freshly expired sessions make their
// drafts eligible in the same pass.
func (s *Service) Tick(ctx context.Context) error {
	if _, err := s.SyncSessions(ctx); err != nil {
		return fmt.Errorf("failed to sync sessions: %w", err)
	}
	if _, err := s.Run(ctx); err != nil {
		return fmt.Errorf("failed to sweep drafts: %w", err)
	}
	return nil
}

// RegisterSchedule runs Tick on cfg.Sweeper.Schedule for the lifetime of the app. An empty
// schedule leaves the sweeper to the CLI and the admin endpoints.
func RegisterSchedule(lc fx.Lifecycle, cfg *config.Config, s *Service, log *zap.SugaredLogger) error {
	spec := cfg.Sweeper.Schedule
	if spec == "" {
		log.Infow("sweeper_schedule_disabled")
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx := logctx.WithTraceID(context.Background(), tool.GenerateUUIDV7())
		if err := s.Tick(ctx); err != nil {
			logctx.FromCtx(ctx, log).Errorw("sweeper_tick_failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", spec, err)
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			log.Infow("sweeper_schedule_started", "schedule", spec)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
