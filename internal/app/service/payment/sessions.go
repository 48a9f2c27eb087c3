package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	"github.com/fatflowers/docpay/internal/models"
)

// Sessions holds the conditional writes on checkout sessions. Every status write is
// guarded by payment_status = 'pending', so terminal states are absorbing.
type Sessions struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewSessions(db *gorm.DB, log *zap.SugaredLogger) *Sessions {
	return &Sessions{db: db, log: log}
}

func (s *Sessions) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return s.db
	}
	return tx
}

// Settle moves a pending session to a terminal status. paymentIntentID is recorded
// when non-empty. It reports whether the row moved.
func (s *Sessions) Settle(ctx context.Context, tx *gorm.DB, sessionID string, to models.PaymentSessionStatus, paymentIntentID string) (bool, error) {
	if err := lifecycle.NextSession(models.PaymentSessionStatusPending, to); err != nil {
		return false, err
	}
	updates := map[string]any{"payment_status": to, "updated_at": time.Now()}
	if paymentIntentID != "" {
		updates["payment_intent_id"] = paymentIntentID
	}
	res := s.conn(tx).WithContext(ctx).Model(&models.PaymentSession{}).
		Where("session_id = ? AND payment_status = ?", sessionID, models.PaymentSessionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to move session %s to %s: %w", sessionID, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Sessions) Get(ctx context.Context, tx *gorm.DB, sessionID string) (*models.PaymentSession, error) {
	var sess models.PaymentSession
	err := s.conn(tx).WithContext(ctx).Where("session_id = ?", sessionID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// FindForIntent resolves the session a payment intent belongs to: by recorded intent id,
// then by the session id in the intent metadata, then the latest pending session of the
// document named in the metadata.
func (s *Sessions) FindForIntent(ctx context.Context, paymentIntentID string, metadata map[string]string) (*models.PaymentSession, error) {
	if paymentIntentID != "" {
		var sess models.PaymentSession
		err := s.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&sess).Error
		if err == nil {
			return &sess, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find session by intent: %w", err)
		}
	}
	if sid := metadata["session_id"]; sid != "" {
		sess, err := s.Get(ctx, nil, sid)
		if err != nil || sess != nil {
			return sess, err
		}
	}
	if docID := metadata["document_id"]; docID != "" {
		var sess models.PaymentSession
		err := s.db.WithContext(ctx).
			Where("document_id = ? AND payment_status = ?", docID, models.PaymentSessionStatusPending).
			Order("created_at DESC, id DESC").
			First(&sess).Error
		if err == nil {
			return &sess, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find session by document: %w", err)
		}
	}
	return nil, nil
}

// StalePending returns pending sessions not updated since before.
func (s *Sessions) StalePending(ctx context.Context, before time.Time, limit int) ([]*models.PaymentSession, error) {
	var out []*models.PaymentSession
	q := s.db.WithContext(ctx).
		Where("payment_status = ? AND updated_at <= ?", models.PaymentSessionStatusPending, before).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	return out, nil
}

// DeleteForDocument removes every session of a document still in draft. It returns the
// number of rows removed.
func (s *Sessions) DeleteForDocument(ctx context.Context, documentID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("document_id = ? AND EXISTS (SELECT 1 FROM documents WHERE documents.id = payment_sessions.document_id AND documents.status = ?)",
			documentID, models.DocumentStatusDraft).
		Delete(&models.PaymentSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete sessions of %s: %w", documentID, res.Error)
	}
	return res.RowsAffected, nil
}
