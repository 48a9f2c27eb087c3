package notification_handler

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
)

// eventParser decodes the object nested in a verified event.
type eventParser struct {
	ev *stripe.Event
}

func (p eventParser) raw() ([]byte, error) {
	if p.ev == nil || p.ev.Data == nil || len(p.ev.Data.Raw) == 0 {
		return nil, fmt.Errorf("event has no data object")
	}
	return p.ev.Data.Raw, nil
}

func (p eventParser) CheckoutSession() (*stripe_checkout.Session, error) {
	raw, err := p.raw()
	if err != nil {
		return nil, err
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if cs.ID == "" {
		return nil, fmt.Errorf("checkout session without id")
	}
	return stripe_checkout.FromCheckoutSession(&cs), nil
}

func (p eventParser) PaymentIntent() (*stripe.PaymentIntent, error) {
	raw, err := p.raw()
	if err != nil {
		return nil, err
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("payment intent without id")
	}
	return &pi, nil
}

// intentError flattens the last payment error of an intent.
func intentError(pi *stripe.PaymentIntent) (code, message string) {
	if pi == nil || pi.LastPaymentError == nil {
		return "", ""
	}
	code = string(pi.LastPaymentError.Code)
	if code == "" && pi.LastPaymentError.DeclineCode != "" {
		code = string(pi.LastPaymentError.DeclineCode)
	}
	return code, pi.LastPaymentError.Msg
}
