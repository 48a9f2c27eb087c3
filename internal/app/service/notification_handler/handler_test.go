package notification_handler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/gorm"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/file_arrival"
	notificationlog "github.com/fatflowers/docpay/internal/app/service/notification_log"
	"github.com/fatflowers/docpay/internal/app/service/payment"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/db/dbtest"
	"github.com/fatflowers/docpay/internal/platform/pdfpages"
	"github.com/fatflowers/docpay/internal/platform/pdfpages/pdftest"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout/checkouttest"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/types"
)

type stubArrival struct {
	mu  sync.Mutex
	ids []string
}

func (s *stubArrival) Deliver(_ context.Context, id string) (file_arrival.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return file_arrival.OutcomeStored, nil
}

func (s *stubArrival) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

type fixture struct {
	db       *gorm.DB
	docs     *document.Service
	payments *payment.Service
	sessions *payment.Sessions
	audit    *actionlog.Service
	journal  *notificationlog.Service
	arrival  *stubArrival
	h        *NotificationHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	cfg := &config.Config{
		Storage:  config.StorageConfig{StagingDir: t.TempDir()},
		Pricing:  config.PricingConfig{PerPage: "25.00", Currency: "eur"},
		Recovery: config.RecoveryConfig{MaxFileSize: types.MaxUploadSize},
	}
	checkout := checkouttest.New()
	audit := actionlog.New(db, log)
	f := &fixture{
		db:       db,
		docs:     document.New(db, cfg, log, pdfpages.NewCounter(log), checkout, audit),
		payments: payment.NewService(db, log),
		sessions: payment.NewSessions(db, log),
		audit:    audit,
		journal:  notificationlog.NewSync(db, log),
		arrival:  &stubArrival{},
	}
	f.h = newHandler(db, f.docs, f.payments, f.sessions, checkout, audit, f.journal, f.arrival, log)
	f.h.async = func(fn func()) { fn() }
	return f
}

func (f *fixture) draft(t *testing.T) *document.DraftResult {
	t.Helper()
	res, err := f.docs.CreateDraft(context.Background(), &document.DraftRequest{UserID: "u1", Filename: "a.pdf", Data: pdftest.Build(2)})
	require.NoError(t, err)
	return res
}

func event(t *testing.T, id string, typ stripe.EventType, obj map[string]any) *stripe_webhook.VerifiedEvent {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return &stripe_webhook.VerifiedEvent{
		Event:       stripe.Event{ID: id, Type: typ, Data: &stripe.EventData{Raw: raw}},
		Environment: "test",
		Payload:     raw,
	}
}

func checkoutObject(sessionID, docID, status, paymentStatus string) map[string]any {
	return map[string]any{
		"id":             sessionID,
		"object":         "checkout.session",
		"status":         status,
		"payment_status": paymentStatus,
		"payment_intent": "pi_123",
		"amount_total":   5000,
		"currency":       "eur",
		"metadata":       map[string]string{"document_id": docID, "user_id": "u1"},
	}
}

func TestCheckoutCompleted_PaidMovesDocumentOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)
	ev := event(t, "evt_1", EventCheckoutCompleted, checkoutObject(d.SessionID, d.Document.ID, "complete", "paid"))

	res, err := f.h.HandleEvent(ctx, ev)
	require.NoError(t, err)
	require.True(t, res.Handled)
	require.True(t, res.Applied)

	doc, err := f.docs.Get(ctx, d.Document.ID)
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusPending, doc.Status)

	p, err := f.payments.GetByDocument(ctx, d.Document.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, int64(5000), p.GrossAmount)
	require.Equal(t, p.GrossAmount-p.FeeAmount, p.Amount)

	sess, err := f.sessions.Get(ctx, nil, d.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSessionStatusCompleted, sess.PaymentStatus)
	require.NotNil(t, sess.PaymentIntentID)
	require.Equal(t, "pi_123", *sess.PaymentIntentID)
	require.Equal(t, []string{d.Document.ID}, f.arrival.calls())

	// Replay of the same event and a duplicate with a new event id change nothing.
	res, err = f.h.HandleEvent(ctx, ev)
	require.NoError(t, err)
	require.False(t, res.Applied)
	_, err = f.h.HandleEvent(ctx, event(t, "evt_2", EventCheckoutCompleted, checkoutObject(d.SessionID, d.Document.ID, "complete", "paid")))
	require.NoError(t, err)

	var n int64
	require.NoError(t, f.db.Model(&models.Payment{}).Where("document_id = ?", d.Document.ID).Count(&n).Error)
	require.Equal(t, int64(1), n)
	require.Len(t, f.arrival.calls(), 1)

	lines, err := f.audit.List(ctx, actionlog.EntityDocument, d.Document.ID)
	require.NoError(t, err)
	completed := 0
	for _, l := range lines {
		if l.Action == actionlog.ActionPaymentCompleted {
			completed++
		}
	}
	require.Equal(t, 1, completed)
}

func TestCheckoutCompleted_UnpaidCreatesNoPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)

	res, err := f.h.HandleEvent(ctx, event(t, "evt_1", EventCheckoutCompleted, checkoutObject(d.SessionID, d.Document.ID, "complete", "unpaid")))
	require.NoError(t, err)
	require.Equal(t, actionlog.ActionPaymentFailed, res.Action)
	require.False(t, res.Applied)

	doc, err := f.docs.Get(ctx, d.Document.ID)
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusDraft, doc.Status)
	p, err := f.payments.GetByDocument(ctx, d.Document.ID)
	require.NoError(t, err)
	require.Nil(t, p)
	require.Empty(t, f.arrival.calls())

	lines, err := f.audit.List(ctx, actionlog.EntityPaymentSession, d.SessionID)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	require.Equal(t, actionlog.ActionPaymentFailed, lines[len(lines)-1].Action)
}

func TestCheckoutCompleted_MissingDocumentIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := "0190f4c2-0000-7000-8000-000000000000"

	res, err := f.h.HandleEvent(ctx, event(t, "evt_1", EventCheckoutCompleted, checkoutObject("cs_test_gone", missing, "complete", "paid")))
	require.NoError(t, err)
	require.Equal(t, actionlog.ActionPaymentOrphaned, res.Action)

	var n int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&n).Error)
	require.Zero(t, n)
	lines, err := f.audit.List(ctx, actionlog.EntityPaymentSession, "cs_test_gone")
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCheckoutExpired_SettlesAndLogsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)
	obj := checkoutObject(d.SessionID, d.Document.ID, "expired", "unpaid")

	res, err := f.h.HandleEvent(ctx, event(t, "evt_1", EventCheckoutExpired, obj))
	require.NoError(t, err)
	require.True(t, res.Applied)
	res, err = f.h.HandleEvent(ctx, event(t, "evt_2", EventCheckoutExpired, obj))
	require.NoError(t, err)
	require.False(t, res.Applied)

	sess, err := f.sessions.Get(ctx, nil, d.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSessionStatusExpired, sess.PaymentStatus)
	lines, err := f.audit.List(ctx, actionlog.EntityPaymentSession, d.SessionID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	// A late completion cannot revive an expired session.
	_, err = f.h.HandleEvent(ctx, event(t, "evt_3", EventCheckoutCompleted, checkoutObject(d.SessionID, d.Document.ID, "complete", "paid")))
	require.NoError(t, err)
	sess, err = f.sessions.Get(ctx, nil, d.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSessionStatusExpired, sess.PaymentStatus)
}

func TestPaymentIntentFailed_FailsSessionOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)
	obj := map[string]any{
		"id":       "pi_failed",
		"object":   "payment_intent",
		"metadata": map[string]string{"session_id": d.SessionID, "document_id": d.Document.ID},
		"last_payment_error": map[string]any{
			"code":         "card_declined",
			"decline_code": "insufficient_funds",
			"message":      "Your card has insufficient funds.",
		},
	}

	res, err := f.h.HandleEvent(ctx, event(t, "evt_1", EventPaymentIntentFailed, obj))
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, d.SessionID, res.SessionID)

	sess, err := f.sessions.Get(ctx, nil, d.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSessionStatusFailed, sess.PaymentStatus)
	doc, err := f.docs.Get(ctx, d.Document.ID)
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusDraft, doc.Status)

	lines, err := f.audit.List(ctx, actionlog.EntityPaymentSession, d.SessionID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "card_declined", lines[0].Metadata["error_code"])
}

func TestPaymentIntentFailed_WithoutSession(t *testing.T) {
	f := newFixture(t)
	res, err := f.h.HandleEvent(context.Background(), event(t, "evt_1", EventPaymentIntentFailed, map[string]any{"id": "pi_orphan", "object": "payment_intent"}))
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, "no matching session", res.Note)
}

func TestHandleEvent_UnknownTypeIgnoredAndJournaled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.h.HandleEvent(ctx, event(t, "evt_x", stripe.EventType("customer.created"), map[string]any{"id": "cus_1"}))
	require.NoError(t, err)
	require.False(t, res.Handled)

	rows, err := f.journal.ListByEvent(ctx, "evt_x")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
}

func TestHandleEvent_MalformedObject(t *testing.T) {
	f := newFixture(t)
	ev := &stripe_webhook.VerifiedEvent{Event: stripe.Event{ID: "evt_bad", Type: EventCheckoutCompleted, Data: &stripe.EventData{}}}
	_, err := f.h.HandleEvent(context.Background(), ev)
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestAuditOnlyEvents_LeaveStateAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t)

	res, err := f.h.HandleEvent(ctx, event(t, "evt_1", EventCheckoutAsyncProcessing, checkoutObject(d.SessionID, d.Document.ID, "complete", "unpaid")))
	require.NoError(t, err)
	require.True(t, res.Handled)
	require.Equal(t, actionlog.ActionPaymentProcessing, res.Action)

	res, err = f.h.HandleEvent(ctx, event(t, "evt_2", EventPaymentIntentSucceeded, map[string]any{
		"id": "pi_ok", "object": "payment_intent", "amount": 5000, "currency": "eur",
		"metadata": map[string]string{"document_id": d.Document.ID},
	}))
	require.NoError(t, err)
	require.Equal(t, actionlog.ActionPaymentIntentSuccess, res.Action)
	require.Equal(t, d.Document.ID, res.DocumentID)

	doc, err := f.docs.Get(ctx, d.Document.ID)
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusDraft, doc.Status)
	sess, err := f.sessions.Get(ctx, nil, d.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSessionStatusPending, sess.PaymentStatus)

	lines, err := f.audit.List(ctx, actionlog.EntityPaymentSession, d.SessionID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	lines, err = f.audit.List(ctx, actionlog.EntityPaymentSession, "pi_ok")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Empty(t, f.arrival.calls())
}
