// Package action_log writes the append-only audit trail. It exposes no update or delete.
package action_log

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/tool"
)

const (
	ActionDraftCreated         = "draft_created"
	ActionPaymentCompleted     = "payment_completed"
	ActionPaymentFailed        = "payment_failed"
	ActionPaymentOrphaned      = "payment_orphaned"
	ActionPaymentProcessing    = "payment_processing"
	ActionSessionExpired       = "session_expired"
	ActionPaymentIntentFailed  = "payment_intent_failed"
	ActionPaymentIntentSuccess = "payment_intent_succeeded"
	ActionFileStored           = "file_stored"
	ActionUploadFailed         = "upload_failed"
	ActionUploadRetrySucceeded = "upload_retry_succeeded"
	ActionDeliverySent         = "delivery_sent"
	ActionDeliveryFailed       = "delivery_failed"
	ActionDraftDeleted         = "draft_deleted"
	ActionSessionSynced        = "session_synced"

	EntityDocument       = "document"
	EntityPaymentSession = "payment_session"
)

// Entry is one audit line. Actor defaults to the actor carried by ctx.
type Entry struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]any
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Record appends e. When tx is non-nil the line commits or rolls back with it.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, e *Entry) error {
	if tx == nil {
		tx = s.db
	}
	row := s.build(ctx, e)
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to record %s for %s %s: %w", e.Action, e.EntityType, e.EntityID, err)
	}
	return nil
}

// RecordOnce appends e unless a line with the same action and entity was written within
// window. It reports whether a line was written. The check is best effort: two callers
// racing under read committed may both write, which only costs a duplicate audit line.
func (s *Service) RecordOnce(ctx context.Context, e *Entry, window time.Duration) (bool, error) {
	written := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&models.ActionLog{}).
			Where("action = ? AND entity_type = ? AND entity_id = ? AND created_at > ?",
				e.Action, e.EntityType, e.EntityID, time.Now().Add(-window)).
			Count(&n).Error
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := tx.Create(s.build(ctx, e)).Error; err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record %s once for %s %s: %w", e.Action, e.EntityType, e.EntityID, err)
	}
	return written, nil
}

// Warn records e and only logs a failure. Used where the audit line must not fail the caller.
func (s *Service) Warn(ctx context.Context, e *Entry) {
	if err := s.Record(ctx, nil, e); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("action_log_write_failed", "action", e.Action, "entity_id", e.EntityID, "err", err)
	}
}

// List returns the audit lines for one entity, oldest first.
func (s *Service) List(ctx context.Context, entityType, entityID string) ([]*models.ActionLog, error) {
	var out []*models.ActionLog
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list action logs: %w", err)
	}
	return out, nil
}

func (s *Service) build(ctx context.Context, e *Entry) *models.ActionLog {
	actor := e.Actor
	if actor == "" {
		actor = logctx.Actor(ctx, "system")
	}
	return &models.ActionLog{
		ID:         tool.GenerateUUIDV7(),
		Actor:      actor,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		TraceID:    logctx.TraceID(ctx),
		Metadata:   datatypes.JSONMap(e.Metadata),
		CreatedAt:  time.Now(),
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
