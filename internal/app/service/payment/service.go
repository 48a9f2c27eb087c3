package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
	"github.com/fatflowers/docpay/pkg/tool"
	"github.com/fatflowers/docpay/pkg/types"
)

// ScanFields are the payment columns admin filters and sorting may reference.
var ScanFields = []string{"user_id", "document_id", "session_id", "currency", "status", "payment_date", "created_at", "amount"}

var ErrInvalidScan = errors.New("invalid payment scan request")

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// FromSession builds the payment row of a completed checkout. Amount is net of fees.
func FromSession(doc *models.Document, sess *stripe_checkout.Session, fees *stripe_checkout.Fees) *models.Payment {
	gross := sess.AmountTotal
	fee := int64(0)
	currency := sess.Currency
	if fees != nil {
		fee = fees.Fee
		if fees.Gross > 0 {
			gross = fees.Gross
		}
		if fees.Currency != "" {
			currency = fees.Currency
		}
	}
	return &models.Payment{
		ID:          tool.GenerateUUIDV7(),
		DocumentID:  doc.ID,
		UserID:      doc.UserID,
		SessionID:   sess.ID,
		Amount:      gross - fee,
		GrossAmount: gross,
		FeeAmount:   fee,
		Currency:    currency,
		Status:      models.PaymentStatusCompleted,
		PaymentDate: time.Now(),
	}
}

// CreateIfAbsent inserts p unless the document already has a payment. It reports
// whether this call created the row.
func (s *Service) CreateIfAbsent(ctx context.Context, tx *gorm.DB, p *models.Payment) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "document_id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create payment for %s: %w", p.DocumentID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetByDocument returns the payment of a document, or nil.
func (s *Service) GetByDocument(ctx context.Context, documentID string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Where("document_id = ?", documentID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment of %s: %w", documentID, err)
	}
	return &p, nil
}

// ScanPayments implements the paginated admin listing with filters.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidScan)
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}
	for _, f := range req.Filters {
		if err := f.Validate(ScanFields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScan, err)
		}
	}
	if req.SortBy != "" && !containsField(ScanFields, req.SortBy) {
		return nil, fmt.Errorf("%w: sort field not allowed: %q", ErrInvalidScan, req.SortBy)
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}

func containsField(fields []string, f string) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(NewSessions),
)
