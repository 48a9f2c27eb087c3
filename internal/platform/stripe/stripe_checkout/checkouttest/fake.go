// Package checkouttest provides an in-memory stripe_checkout.Client for package tests.
package checkouttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
	"github.com/fatflowers/docpay/pkg/config"
)

var ErrUnknownSession = errors.New("no such checkout session")

type Fake struct {
	mu       sync.Mutex
	Live     bool
	Sessions map[string]*stripe_checkout.Session
	Created  []*stripe_checkout.CheckoutRequest
	// Gets counts GetSession calls per session id.
	Gets      map[string]int
	CreateErr error
	// Fees, when set, is returned by ResolveFees instead of the configured estimate.
	Fees   *stripe_checkout.Fees
	Config config.StripeConfig
	seq    int
}

var _ stripe_checkout.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Sessions: map[string]*stripe_checkout.Session{},
		Gets:     map[string]int{},
		Config:   config.StripeConfig{FeePercent: 2.9, FeeFixed: 30},
	}
}

func (f *Fake) CreateCheckout(_ context.Context, req *stripe_checkout.CheckoutRequest) (*stripe_checkout.CreatedCheckout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.seq++
	prefix := "cs_test_"
	if f.Live {
		prefix = "cs_live_"
	}
	id := fmt.Sprintf("%s%d", prefix, f.seq)
	f.Created = append(f.Created, req)
	f.Sessions[id] = &stripe_checkout.Session{
		ID:            id,
		Status:        "open",
		PaymentStatus: "unpaid",
		AmountTotal:   req.UnitAmount * req.Pages,
		Currency:      req.Currency,
		Metadata:      map[string]string{"document_id": req.DocumentID, "user_id": req.UserID},
	}
	return &stripe_checkout.CreatedCheckout{SessionID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *Fake) GetSession(_ context.Context, sessionID string) (*stripe_checkout.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Gets[sessionID]++
	s, ok := f.Sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	cp := *s
	return &cp, nil
}

func (f *Fake) ResolveFees(_ context.Context, _ string, gross int64, currency string) *stripe_checkout.Fees {
	if f.Fees != nil {
		return f.Fees
	}
	return stripe_checkout.EstimateFees(f.Config, gross, currency)
}

func (f *Fake) LiveMode() bool { return f.Live }

// Set stores s, replacing any session with the same id.
func (f *Fake) Set(s *stripe_checkout.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sessions[s.ID] = s
}

// GetCount returns how many times sessionID was fetched.
func (f *Fake) GetCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Gets[sessionID]
}
