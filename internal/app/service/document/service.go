package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/pdfpages"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/tool"
	"github.com/fatflowers/docpay/pkg/types"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrInvalidRequest = errors.New("invalid document request")
	ErrStagedMissing  = errors.New("staged file missing")
)

type DraftRequest struct {
	UserID         string
	ClientName     string
	DocumentType   types.DocumentType
	SourceLanguage string
	TargetLanguage string
	SourceCurrency string
	TargetCurrency string
	Filename       string
	Data           []byte
}

type DraftResult struct {
	Document    *models.Document
	SessionID   string
	CheckoutURL string
}

type Service struct {
	db       *gorm.DB
	cfg      *config.Config
	log      *zap.SugaredLogger
	pages    pdfpages.Counter
	checkout stripe_checkout.Client
	audit    *actionlog.Service
}

func New(db *gorm.DB, cfg *config.Config, log *zap.SugaredLogger, pages pdfpages.Counter, checkout stripe_checkout.Client, audit *actionlog.Service) *Service {
	return &Service{db: db, cfg: cfg, log: log, pages: pages, checkout: checkout, audit: audit}
}

// CreateDraft validates and stages the submission, inserts the draft and opens a checkout
// session billed per page. A draft whose checkout could not be created has no session
// and is later reclaimed by the sweeper.
func (s *Service) CreateDraft(ctx context.Context, req *DraftRequest) (*DraftResult, error) {
	if req == nil || req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if req.DocumentType == "" {
		req.DocumentType = types.DocumentTypeStandard
	}
	if !req.DocumentType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidRequest, req.DocumentType)
	}
	if err := ValidateUpload(req.Data, s.cfg.Recovery.MaxFileSize); err != nil {
		return nil, err
	}
	pages, err := s.pages.Count(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	price := s.cfg.Pricing.PricePerPage()
	doc := &models.Document{
		ID:               tool.GenerateUUIDV7(),
		UserID:           req.UserID,
		ClientName:       req.ClientName,
		Filename:         SanitizeFilename(req.Filename),
		OriginalFilename: req.Filename,
		DocumentType:     string(req.DocumentType),
		Status:           models.DocumentStatusDraft,
		Pages:            pages,
		TotalCost:        price.Mul(decimal.NewFromInt(int64(pages))),
		SourceLanguage:   req.SourceLanguage,
		TargetLanguage:   req.TargetLanguage,
		SourceCurrency:   req.SourceCurrency,
		TargetCurrency:   req.TargetCurrency,
	}
	staged, err := s.stage(doc, req.Data)
	if err != nil {
		return nil, err
	}
	doc.StagedPath = staged

	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	created, err := s.checkout.CreateCheckout(ctx, &stripe_checkout.CheckoutRequest{
		DocumentID:  doc.ID,
		UserID:      doc.UserID,
		ProductName: fmt.Sprintf("%s translation: %s", doc.DocumentType, doc.Filename),
		Currency:    s.cfg.Pricing.Currency,
		UnitAmount:  price.Shift(2).Round(0).IntPart(),
		Pages:       int64(pages),
	})
	if err != nil {
		return nil, err
	}
	sess := &models.PaymentSession{
		ID:            tool.GenerateUUIDV7(),
		SessionID:     created.SessionID,
		DocumentID:    doc.ID,
		PaymentStatus: models.PaymentSessionStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment session: %w", err)
	}

	s.audit.Warn(ctx, &actionlog.Entry{
		Actor:      req.UserID,
		Action:     actionlog.ActionDraftCreated,
		EntityType: actionlog.EntityDocument,
		EntityID:   doc.ID,
		Metadata:   map[string]any{"session_id": created.SessionID, "pages": pages, "total_cost": doc.TotalCost.StringFixed(2)},
	})
	logctx.FromCtx(ctx, s.log).Infow("document_draft_created", "document_id", doc.ID, "session_id", created.SessionID, "pages", pages)
	return &DraftResult{Document: doc, SessionID: created.SessionID, CheckoutURL: created.URL}, nil
}

// Transition applies ev to the document if it is still in one of ev's source states.
// extra columns are written in the same statement. It reports whether a row moved.
func (s *Service) Transition(ctx context.Context, tx *gorm.DB, id string, ev lifecycle.DocumentEvent, extra map[string]any) (bool, error) {
	return s.transition(ctx, tx, id, ev, extra, "")
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, id string, ev lifecycle.DocumentEvent, extra map[string]any, guard string) (bool, error) {
	sources := lifecycle.Sources(ev)
	if len(sources) == 0 {
		return false, fmt.Errorf("%w: %s", lifecycle.ErrUnknownEvent, ev)
	}
	if _, ok := extra["file_url"]; ok && !lifecycle.AttachesFile(ev) {
		return false, fmt.Errorf("%w: %s cannot attach a file", lifecycle.ErrInvalidTransition, ev)
	}
	if tx == nil {
		tx = s.db
	}
	updates := map[string]any{"updated_at": time.Now()}
	if to := lifecycle.Target(ev); to != "" {
		updates["status"] = to
	}
	for k, v := range extra {
		updates[k] = v
	}
	q := tx.WithContext(ctx).Model(&models.Document{}).Where("id = ? AND status IN ?", id, sources)
	if guard != "" {
		q = q.Where(guard)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to apply %s to document %s: %w", ev, id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkFileStored attaches fileURL and moves pending to processing in one statement.
func (s *Service) MarkFileStored(ctx context.Context, id, fileURL string) (bool, error) {
	return s.transition(ctx, nil, id, lifecycle.EventFileStored, map[string]any{"file_url": fileURL}, "file_url IS NULL")
}

// MarkUploadFailed flags a paid document whose file never reached storage.
func (s *Service) MarkUploadFailed(ctx context.Context, id string) (bool, error) {
	return s.transition(ctx, nil, id, lifecycle.EventUploadFailed, map[string]any{"upload_failed_at": time.Now()}, "file_url IS NULL")
}

// CompleteRetry records a recovered upload: new file_url, status pending, failure flag
// cleared and retry counter bumped, all in one statement. Documents that already hold a
// file are left alone.
func (s *Service) CompleteRetry(ctx context.Context, id, fileURL string) (bool, error) {
	return s.transition(ctx, nil, id, lifecycle.EventRetrySucceeded, map[string]any{
		"file_url":           fileURL,
		"upload_failed_at":   nil,
		"upload_retry_count": gorm.Expr("upload_retry_count + 1"),
	}, "file_url IS NULL")
}

func (s *Service) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return &doc, nil
}

// FilterFields are the columns staff filters may reference.
var FilterFields = []string{"user_id", "status", "document_type", "client_name", "created_at", "upload_failed_at"}

// MissingFileFilter scopes ListMissingFile. UserID narrows to one customer; Filters are
// staff-supplied and must already be validated.
type MissingFileFilter struct {
	UserID  string
	Filters types.FiltersAnd
	From    int
	Size    int
}

// ListMissingFile returns documents with a completed payment and no stored file,
// newest first, plus the total match count.
func (s *Service) ListMissingFile(ctx context.Context, f *MissingFileFilter) ([]*models.Document, int64, error) {
	if f == nil {
		f = &MissingFileFilter{}
	}
	q := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("file_url IS NULL").
		Where("status IN ?", []models.DocumentStatus{models.DocumentStatusPending, models.DocumentStatusProcessing}).
		Where("EXISTS (SELECT 1 FROM payments WHERE payments.document_id = documents.id AND payments.status = ?)", models.PaymentStatusCompleted)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if len(f.Filters) > 0 {
		q = q.Where(f.Filters)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count missing-file documents: %w", err)
	}
	size := f.Size
	if size <= 0 || size > 200 {
		size = 50
	}
	var out []*models.Document
	if err := q.Order("created_at DESC").Offset(f.From).Limit(size).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list missing-file documents: %w", err)
	}
	return out, total, nil
}

// HasCompletedPayment reports whether the document's payment has been recorded.
func (s *Service) HasCompletedPayment(ctx context.Context, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("document_id = ? AND status = ?", id, models.PaymentStatusCompleted).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check payment for %s: %w", id, err)
	}
	return n > 0, nil
}

// LatestSession returns the most recently created checkout session of a document, or nil.
func (s *Service) LatestSession(ctx context.Context, tx *gorm.DB, id string) (*models.PaymentSession, error) {
	if tx == nil {
		tx = s.db
	}
	var sess models.PaymentSession
	err := tx.WithContext(ctx).Where("document_id = ?", id).Order("created_at DESC, id DESC").First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session of %s: %w", id, err)
	}
	return &sess, nil
}

// ListDrafts returns drafts created within [from, to], oldest first.
func (s *Service) ListDrafts(ctx context.Context, from, to time.Time, limit int) ([]*models.Document, error) {
	var out []*models.Document
	q := s.db.WithContext(ctx).
		Where("status = ? AND created_at >= ? AND created_at <= ?", models.DocumentStatusDraft, from, to).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return out, nil
}

// DeleteDraft removes the document row if it is still an abandonable draft.
func (s *Service) DeleteDraft(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, lifecycle.Sources(lifecycle.EventAbandoned)).
		Delete(&models.Document{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete draft %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReadStaged returns the locally staged submission of doc.
func (s *Service) ReadStaged(doc *models.Document) ([]byte, error) {
	if doc.StagedPath == "" {
		return nil, fmt.Errorf("%w: %s", ErrStagedMissing, doc.ID)
	}
	data, err := os.ReadFile(doc.StagedPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStagedMissing, doc.StagedPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file: %w", err)
	}
	return data, nil
}

// RemoveStaged drops the local copy once the file is in storage or the draft is gone.
func (s *Service) RemoveStaged(ctx context.Context, doc *models.Document) {
	if doc.StagedPath == "" {
		return
	}
	dir := filepath.Dir(doc.StagedPath)
	if !strings.HasPrefix(dir, filepath.Clean(s.cfg.Storage.StagingDir)) {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("staged_file_remove_failed", "document_id", doc.ID, "err", err)
	}
}

func (s *Service) stage(doc *models.Document, data []byte) (string, error) {
	dir := filepath.Join(s.cfg.Storage.StagingDir, doc.ID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	p := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(p, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to stage file: %w", err)
	}
	return p, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
