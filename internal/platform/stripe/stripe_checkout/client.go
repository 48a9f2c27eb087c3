package stripe_checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/pkg/config"
)

var ErrNotConfigured = errors.New("stripe secret key not configured")

// CheckoutRequest describes the single line item a document checkout bills for.
type CheckoutRequest struct {
	DocumentID  string
	UserID      string
	ProductName string
	Currency    string
	// UnitAmount is the per-page price in minor units.
	UnitAmount int64
	Pages      int64
}

type CreatedCheckout struct {
	SessionID string
	URL       string
}

// Session is the subset of a checkout session the reconciliation paths read.
type Session struct {
	ID              string
	Status          string
	PaymentStatus   string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	ExpiresAt       time.Time
	Metadata        map[string]string
}

// Fees is the processor's split of a settled charge, in minor units.
type Fees struct {
	Gross    int64
	Fee      int64
	Net      int64
	Currency string
	// Estimated is set when the split came from configured rates rather than the processor.
	Estimated bool
}

type Client interface {
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CreatedCheckout, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ResolveFees(ctx context.Context, paymentIntentID string, gross int64, currency string) *Fees
	LiveMode() bool
}

type stripeClient struct {
	api *client.API
	cfg config.StripeConfig
	log *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) Client {
	sc := &client.API{}
	sc.Init(cfg.Stripe.SecretKey, nil)
	return &stripeClient{api: sc, cfg: cfg.Stripe, log: log}
}

func (c *stripeClient) LiveMode() bool { return c.cfg.LiveMode() }

func (c *stripeClient) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CreatedCheckout, error) {
	if c.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.DocumentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(req.UnitAmount),
				},
				Quantity: stripe.Int64(req.Pages),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"document_id": req.DocumentID,
				"user_id":     req.UserID,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("document_id", req.DocumentID)
	params.AddMetadata("user_id", req.UserID)

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CreatedCheckout{SessionID: s.ID, URL: s.URL}, nil
}

func (c *stripeClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if c.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session %s: %w", sessionID, err)
	}
	return FromCheckoutSession(s), nil
}

// ResolveFees reads the balance transaction behind the payment intent's charge. Any lookup
// failure falls back to the configured percentage plus fixed estimate.
func (c *stripeClient) ResolveFees(ctx context.Context, paymentIntentID string, gross int64, currency string) *Fees {
	if c.cfg.SecretKey != "" && paymentIntentID != "" {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		params.AddExpand("latest_charge.balance_transaction")
		pi, err := c.api.PaymentIntents.Get(paymentIntentID, params)
		if err == nil && pi.LatestCharge != nil && pi.LatestCharge.BalanceTransaction != nil {
			bt := pi.LatestCharge.BalanceTransaction
			return &Fees{Gross: bt.Amount, Fee: bt.Fee, Net: bt.Net, Currency: string(bt.Currency)}
		}
		if err != nil {
			c.log.Warnw("stripe_fee_lookup_failed", "payment_intent_id", paymentIntentID, "err", err)
		}
	}
	return EstimateFees(c.cfg, gross, currency)
}

// EstimateFees applies the configured rate: round(gross × percent / 100) + fixed, capped at gross.
func EstimateFees(cfg config.StripeConfig, gross int64, currency string) *Fees {
	fee := int64(math.Round(float64(gross)*cfg.FeePercent/100)) + cfg.FeeFixed
	if fee > gross {
		fee = gross
	}
	if fee < 0 {
		fee = 0
	}
	return &Fees{Gross: gross, Fee: fee, Net: gross - fee, Currency: currency, Estimated: true}
}

// FromCheckoutSession flattens a stripe session, including one decoded from a webhook payload.
func FromCheckoutSession(s *stripe.CheckoutSession) *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		ID:            s.ID,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// SessionLiveMode reports the mode encoded in a checkout session id. known is false for
// ids that carry neither prefix.
func SessionLiveMode(sessionID string) (live bool, known bool) {
	switch {
	case strings.HasPrefix(sessionID, "cs_live_"):
		return true, true
	case strings.HasPrefix(sessionID, "cs_test_"):
		return false, true
	}
	return false, false
}

// Paid reports the double condition a completed checkout must meet before any money is recorded.
func (s *Session) Paid() bool {
	return s != nil &&
		s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid) &&
		s.Status == string(stripe.CheckoutSessionStatusComplete)
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
