package stripe_checkout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/fatflowers/docpay/pkg/config"
)

func TestEstimateFees(t *testing.T) {
	cfg := config.StripeConfig{FeePercent: 2.9, FeeFixed: 30}

	f := EstimateFees(cfg, 7500, "eur")
	require.Equal(t, int64(248), f.Fee)
	require.Equal(t, int64(7252), f.Net)
	require.True(t, f.Estimated)

	f = EstimateFees(cfg, 10, "eur")
	require.Equal(t, int64(10), f.Fee)
	require.Equal(t, int64(0), f.Net)
}

func TestSessionLiveMode(t *testing.T) {
	live, known := SessionLiveMode("cs_live_a1")
	require.True(t, live)
	require.True(t, known)

	live, known = SessionLiveMode("cs_test_a1")
	require.False(t, live)
	require.True(t, known)

	_, known = SessionLiveMode("sess_1")
	require.False(t, known)
}

func TestFromCheckoutSession_WebhookPayload(t *testing.T) {
	raw := `{"id":"cs_test_1","object":"checkout.session","status":"complete","payment_status":"paid",
		"amount_total":7500,"currency":"eur","payment_intent":"pi_1","expires_at":1700000000,
		"metadata":{"document_id":"doc-1"}}`
	var cs stripe.CheckoutSession
	require.NoError(t, json.Unmarshal([]byte(raw), &cs))

	s := FromCheckoutSession(&cs)
	require.Equal(t, "pi_1", s.PaymentIntentID)
	require.Equal(t, int64(7500), s.AmountTotal)
	require.Equal(t, "doc-1", s.Metadata["document_id"])
	require.True(t, s.Paid())

	s.PaymentStatus = "unpaid"
	require.False(t, s.Paid())
	require.False(t, (*Session)(nil).Paid())
}
