package statistics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/pkg/types"
)

type StatisticType string

const (
	// Daily counts and revenue, bucketed by payment_date.
	StatisticTypeDailyPaymentCount StatisticType = "daily_payment_count"
	StatisticTypeDailyRevenue      StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue      StatisticType = "total_revenue"

	// Document state at query time.
	StatisticTypeDocumentStatusCount StatisticType = "document_status_count"
	StatisticTypeMissingFileCount    StatisticType = "missing_file_count"
)

var ErrInvalidRequest = errors.New("invalid statistic request")

// PaymentFilterFields are the payment columns a statistic request may filter on.
var PaymentFilterFields = []string{"user_id", "currency"}

// paymentStatistics lists the types the payment filters apply to. Other types ignore them.
var paymentStatistics = []StatisticType{
	StatisticTypeDailyPaymentCount,
	StatisticTypeDailyRevenue,
	StatisticTypeTotalRevenue,
}

type StatisticRequest struct {
	From      time.Time             `json:"from"`
	To        time.Time             `json:"to"`
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []StatisticType       `json:"data_items"`
}

type StatisticDataItem struct {
	Date string `json:"date,omitempty"`
	// Label is the currency for revenue items and the status for status counts.
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticDataItem `json:"data_items"`
}

// Service aggregates payment and delivery figures for the admin dashboard. Amounts are
// net minor units; Value2 carries the gross amount where it applies.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (r *StatisticRequest) validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if len(r.DataItems) == 0 {
		return fmt.Errorf("%w: no data items", ErrInvalidRequest)
	}
	if r.To.IsZero() {
		r.To = time.Now()
	}
	if r.From.IsZero() {
		r.From = r.To.AddDate(0, 0, -30)
	}
	if r.From.After(r.To) {
		return fmt.Errorf("%w: from is after to", ErrInvalidRequest)
	}
	for _, f := range r.Filters {
		if err := f.Validate(PaymentFilterFields); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	for _, id := range r.DataItems {
		switch id {
		case StatisticTypeDailyPaymentCount, StatisticTypeDailyRevenue, StatisticTypeTotalRevenue,
			StatisticTypeDocumentStatusCount, StatisticTypeMissingFileCount:
		default:
			return fmt.Errorf("%w: invalid data item id: %s", ErrInvalidRequest, id)
		}
	}
	return nil
}

func (s *Service) payments(ctx context.Context, req *StatisticRequest) ([]*models.Payment, error) {
	var rows []*models.Payment
	q := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("payment_date", "amount", "gross_amount", "currency").
		Where("payment_date >= ? AND payment_date <= ?", req.From, req.To)
	if len(req.Filters) > 0 {
		q = q.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}
	if err := q.Order("payment_date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return rows, nil
}

func day(t time.Time) string { return t.UTC().Format(time.DateOnly) }

func dailyPaymentCount(rows []*models.Payment) []StatisticDataItem {
	counts := lo.CountValuesBy(rows, func(p *models.Payment) string { return day(p.PaymentDate) })
	out := make([]StatisticDataItem, 0, len(counts))
	for d, n := range counts {
		out = append(out, StatisticDataItem{Date: d, Value: int64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

type dayCurrency struct{ date, currency string }

func dailyRevenue(rows []*models.Payment) []StatisticDataItem {
	sums := map[dayCurrency]*StatisticDataItem{}
	for _, p := range rows {
		k := dayCurrency{date: day(p.PaymentDate), currency: p.Currency}
		it, ok := sums[k]
		if !ok {
			it = &StatisticDataItem{Date: k.date, Label: k.currency}
			sums[k] = it
		}
		it.Value += p.Amount
		it.Value2 += p.GrossAmount
	}
	out := lo.MapToSlice(sums, func(_ dayCurrency, v *StatisticDataItem) StatisticDataItem { return *v })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// totalRevenue is the running total per currency, newest day first.
func totalRevenue(rows []*models.Payment) []StatisticDataItem {
	daily := dailyRevenue(rows)
	sort.SliceStable(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
	running := map[string]*StatisticDataItem{}
	out := make([]StatisticDataItem, 0, len(daily))
	for _, d := range daily {
		acc, ok := running[d.Label]
		if !ok {
			acc = &StatisticDataItem{Label: d.Label}
			running[d.Label] = acc
		}
		acc.Value += d.Value
		acc.Value2 += d.Value2
		out = append(out, StatisticDataItem{Date: d.Date, Label: d.Label, Value: acc.Value, Value2: acc.Value2})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Label < out[j].Label
	})
	return out
}

type statusCount struct {
	Status string
	Total  int64
}

func (s *Service) documentStatusCount(ctx context.Context, req *StatisticRequest) ([]StatisticDataItem, error) {
	var rows []statusCount
	err := s.db.WithContext(ctx).Model(&models.Document{}).
		Select("status, count(*) as total").
		Where("created_at >= ? AND created_at <= ?", req.From, req.To).
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	return lo.Map(rows, func(r statusCount, _ int) StatisticDataItem {
		return StatisticDataItem{Label: r.Status, Value: r.Total}
	}), nil
}

func (s *Service) missingFileCount(ctx context.Context, _ *StatisticRequest) ([]StatisticDataItem, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("upload_failed_at IS NOT NULL AND file_url IS NULL").
		Count(&n).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count missing files: %w", err)
	}
	return []StatisticDataItem{{Value: n}}, nil
}

// GetStatistics computes every requested item concurrently. Payment rows are loaded once
// and shared by the payment-derived items.
func (s *Service) GetStatistics(ctx context.Context, req *StatisticRequest) (*StatisticResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	items := lo.Uniq(req.DataItems)

	var rows []*models.Payment
	if lo.ContainsBy(items, func(id StatisticType) bool { return lo.Contains(paymentStatistics, id) }) {
		var err error
		if rows, err = s.payments(ctx, req); err != nil {
			return nil, err
		}
	}

	results := make([][]StatisticDataItem, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range items {
		g.Go(func() error {
			var (
				res []StatisticDataItem
				err error
			)
			switch id {
			case StatisticTypeDailyPaymentCount:
				res = dailyPaymentCount(rows)
			case StatisticTypeDailyRevenue:
				res = dailyRevenue(rows)
			case StatisticTypeTotalRevenue:
				res = totalRevenue(rows)
			case StatisticTypeDocumentStatusCount:
				res, err = s.documentStatusCount(gctx, req)
			case StatisticTypeMissingFileCount:
				res, err = s.missingFileCount(gctx, req)
			}
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[StatisticType][]StatisticDataItem, len(items))
	for i, id := range items {
		out[id] = results[i]
	}
	return &StatisticResponse{DataItems: out}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
