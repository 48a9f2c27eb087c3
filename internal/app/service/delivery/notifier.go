package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/automation"
	"github.com/fatflowers/docpay/internal/platform/objectstore"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/dedup"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/metrics"
	"github.com/fatflowers/docpay/pkg/tool"
	"github.com/fatflowers/docpay/pkg/types"
)

const (
	SourceArrival      = "file_arrival"
	SourceRecovery     = "recovery"
	SourceStorageEvent = "storage_event"

	MessageAlreadyProcessed = "already processed"
)

var ErrInvalidRequest = errors.New("invalid delivery request")

type DeliveryRequest struct {
	Document *models.Document
	// FileRef is an object key or an already resolved URL.
	FileRef            string
	Size               int64
	Source             string
	OriginalDocumentID string
}

type DeliveryResult struct {
	Sent             bool   `json:"sent"`
	AlreadyProcessed bool   `json:"already_processed"`
	StatusCode       int    `json:"status_code,omitempty"`
	Message          string `json:"message,omitempty"`
}

// Sender is the downstream surface callers forward finished uploads to.
type Sender interface {
	Notify(ctx context.Context, req *DeliveryRequest) (*DeliveryResult, error)
}

type Notifier struct {
	db     *gorm.DB
	cfg    *config.Config
	log    *zap.SugaredLogger
	cache  dedup.Cache
	store  objectstore.Store
	client automation.Client
	audit  *actionlog.Service
	now    func() time.Time
}

var _ Sender = (*Notifier)(nil)

func NewNotifier(db *gorm.DB, cfg *config.Config, log *zap.SugaredLogger, store objectstore.Store, client automation.Client, audit *actionlog.Service) *Notifier {
	return &Notifier{
		db:     db,
		cfg:    cfg,
		log:    log,
		cache:  dedup.New(4096, cfg.Automation.DedupWindow),
		store:  store,
		client: client,
		audit:  audit,
		now:    time.Now,
	}
}

func dedupKey(userID, filename string) string { return userID + "|" + filename }

// Notify forwards a stored document to the automation service at most once per
// (user, filename) within the dedup window. Downstream failures are reported in the
// result and never returned as errors.
func (n *Notifier) Notify(ctx context.Context, req *DeliveryRequest) (*DeliveryResult, error) {
	if req == nil || req.Document == nil || req.FileRef == "" {
		return nil, fmt.Errorf("%w: document and file reference are required", ErrInvalidRequest)
	}
	doc := req.Document
	lg := logctx.FromCtx(ctx, n.log).With("document_id", doc.ID, "source", req.Source)
	key := dedupKey(doc.UserID, doc.Filename)

	if n.cache.Seen(key) {
		metrics.Delivery("deduped")
		lg.Infow("delivery_deduped", "layer", "cache")
		return &DeliveryResult{AlreadyProcessed: true, Message: MessageAlreadyProcessed}, nil
	}
	claimed, err := n.claim(ctx, req)
	if err != nil {
		return nil, err
	}
	n.cache.Mark(key)
	if !claimed {
		metrics.Delivery("deduped")
		lg.Infow("delivery_deduped", "layer", "store")
		return &DeliveryResult{AlreadyProcessed: true, Message: MessageAlreadyProcessed}, nil
	}

	url := req.FileRef
	if !objectstore.IsResolvedURL(url) {
		url, err = n.store.SignedURL(ctx, req.FileRef, n.cfg.Storage.SignedURLTTL)
		if err != nil {
			return n.fail(ctx, req, 0, fmt.Errorf("failed to sign file url: %w", err)), nil
		}
	}

	payload := &automation.Payload{
		Filename:           doc.Filename,
		FileURL:            url,
		MimeType:           document.MimePDF,
		Size:               req.Size,
		UserID:             doc.UserID,
		PageCount:          doc.Pages,
		DocumentType:       doc.DocumentType,
		Cost:               doc.TotalCost.StringFixed(2),
		SourceLanguage:     doc.SourceLanguage,
		TargetLanguage:     doc.TargetLanguage,
		SourceCurrency:     doc.SourceCurrency,
		TargetCurrency:     doc.TargetCurrency,
		DocumentID:         doc.ID,
		OriginalDocumentID: req.OriginalDocumentID,
	}
	code, err := n.client.Send(ctx, payload)
	if err != nil {
		return n.fail(ctx, req, code, err), nil
	}

	n.finish(ctx, req, models.DeliveryStatusSent, code, "")
	metrics.Delivery("sent")
	n.audit.Warn(ctx, &actionlog.Entry{
		Actor:      types.ActorNotifier,
		Action:     actionlog.ActionDeliverySent,
		EntityType: actionlog.EntityDocument,
		EntityID:   doc.ID,
		Metadata:   map[string]any{"source": req.Source, "status_code": code},
	})
	lg.Infow("delivery_sent", "status_code", code)
	return &DeliveryResult{Sent: true, StatusCode: code}, nil
}

// claim takes the durable (user, filename) delivery slot: a fresh insert, or a move of a
// claim older than the window. Both are single conditional statements.
func (n *Notifier) claim(ctx context.Context, req *DeliveryRequest) (bool, error) {
	doc := req.Document
	now := n.now()
	rec := &models.DeliveryRecord{
		ID:         tool.GenerateUUIDV7(),
		UserID:     doc.UserID,
		Filename:   doc.Filename,
		DocumentID: doc.ID,
		Source:     req.Source,
		Status:     models.DeliveryStatusSending,
		Sends:      1,
		ClaimedAt:  now,
	}
	res := n.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "filename"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim delivery: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	res = n.db.WithContext(ctx).Model(&models.DeliveryRecord{}).
		Where("user_id = ? AND filename = ? AND claimed_at <= ?", doc.UserID, doc.Filename, now.Add(-n.cfg.Automation.DedupWindow)).
		Updates(map[string]any{
			"document_id":   doc.ID,
			"source":        req.Source,
			"status":        models.DeliveryStatusSending,
			"sends":         gorm.Expr("sends + 1"),
			"response_code": 0,
			"error":         "",
			"claimed_at":    now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to reclaim delivery: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// fail records the failure and releases the claim so a later trigger may resend.
func (n *Notifier) fail(ctx context.Context, req *DeliveryRequest, code int, err error) *DeliveryResult {
	doc := req.Document
	n.finish(ctx, req, models.DeliveryStatusFailed, code, err.Error())
	n.cache.Forget(dedupKey(doc.UserID, doc.Filename))
	metrics.Delivery("failed")
	n.audit.Warn(ctx, &actionlog.Entry{
		Actor:      types.ActorNotifier,
		Action:     actionlog.ActionDeliveryFailed,
		EntityType: actionlog.EntityDocument,
		EntityID:   doc.ID,
		Metadata:   map[string]any{"source": req.Source, "status_code": code, "error": err.Error()},
	})
	logctx.FromCtx(ctx, n.log).Errorw("delivery_failed", "document_id", doc.ID, "source", req.Source, "status_code", code, "err", err)
	return &DeliveryResult{StatusCode: code, Message: err.Error()}
}

func (n *Notifier) finish(ctx context.Context, req *DeliveryRequest, status models.DeliveryStatus, code int, errMsg string) {
	updates := map[string]any{
		"status":        status,
		"response_code": code,
		"error":         errMsg,
		"updated_at":    n.now(),
	}
	if status == models.DeliveryStatusFailed {
		updates["claimed_at"] = time.Unix(0, 0)
	}
	err := n.db.WithContext(ctx).Model(&models.DeliveryRecord{}).
		Where("user_id = ? AND filename = ?", req.Document.UserID, req.Document.Filename).
		Updates(updates).Error
	if err != nil {
		logctx.FromCtx(ctx, n.log).Warnw("delivery_record_update_failed", "document_id", req.Document.ID, "err", err)
	}
}

// Record returns the delivery record of (userID, filename), or nil.
func (n *Notifier) Record(ctx context.Context, userID, filename string) (*models.DeliveryRecord, error) {
	var rec models.DeliveryRecord
	err := n.db.WithContext(ctx).Where("user_id = ? AND filename = ?", userID, filename).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery record: %w", err)
	}
	return &rec, nil
}

var Module = fx.Options(
	fx.Provide(
		NewNotifier,
		NewStorageEvents,
		func(n *Notifier) Sender { return n },
	),
)
