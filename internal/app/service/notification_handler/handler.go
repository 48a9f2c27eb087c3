package notification_handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/file_arrival"
	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	notificationlog "github.com/fatflowers/docpay/internal/app/service/notification_log"
	"github.com/fatflowers/docpay/internal/app/service/payment"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/metrics"
	"github.com/fatflowers/docpay/pkg/types"
)

const expiredLogWindow = 5 * time.Minute

const (
	EventCheckoutCompleted       = stripe.EventType("checkout.session.completed")
	EventCheckoutAsyncProcessing = stripe.EventType("checkout.session.async_payment_processing")
	EventCheckoutExpired         = stripe.EventType("checkout.session.expired")
	EventPaymentIntentFailed     = stripe.EventType("payment_intent.payment_failed")
	EventPaymentIntentSucceeded  = stripe.EventType("payment_intent.succeeded")
)

var ErrMalformedEvent = errors.New("malformed event")

// HandleResult is journaled with the event and returned to the webhook handler.
type HandleResult struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	Handled    bool   `json:"handled"`
	Action     string `json:"action,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Applied    bool   `json:"applied"` // event changed stored state
	Note       string `json:"note,omitempty"`
}

// Arrival is the post-commit file path started by a confirmed payment.
type Arrival interface {
	Deliver(ctx context.Context, documentID string) (file_arrival.Outcome, error)
}

type handlerFunc func(ctx context.Context, ev *stripe.Event) (*HandleResult, error)

type NotificationHandler struct {
	db       *gorm.DB
	docs     *document.Service
	payments *payment.Service
	sessions *payment.Sessions
	checkout stripe_checkout.Client
	audit    *actionlog.Service
	journal  *notificationlog.Service
	arrival  Arrival
	Logger   *zap.SugaredLogger

	routes map[stripe.EventType]handlerFunc
	// async runs post-commit work; tests replace it to run inline.
	async func(func())
}

func NewNotificationHandler(
	db *gorm.DB,
	docs *document.Service,
	payments *payment.Service,
	sessions *payment.Sessions,
	checkout stripe_checkout.Client,
	audit *actionlog.Service,
	journal *notificationlog.Service,
	arrival *file_arrival.Service,
	log *zap.SugaredLogger,
) *NotificationHandler {
	return newHandler(db, docs, payments, sessions, checkout, audit, journal, arrival, log)
}

func newHandler(db *gorm.DB, docs *document.Service, payments *payment.Service, sessions *payment.Sessions, checkout stripe_checkout.Client,
	audit *actionlog.Service, journal *notificationlog.Service, arrival Arrival, log *zap.SugaredLogger) *NotificationHandler {
	h := &NotificationHandler{
		db:       db,
		docs:     docs,
		payments: payments,
		sessions: sessions,
		checkout: checkout,
		audit:    audit,
		journal:  journal,
		arrival:  arrival,
		Logger:   log,
		async:    func(f func()) { go f() },
	}
	h.routes = map[stripe.EventType]handlerFunc{
		EventCheckoutCompleted:       h.handleCheckoutCompleted,
		EventCheckoutAsyncProcessing: h.handleAsyncProcessing,
		EventCheckoutExpired:         h.handleCheckoutExpired,
		EventPaymentIntentFailed:     h.handlePaymentIntentFailed,
		EventPaymentIntentSucceeded:  h.handlePaymentIntentSucceeded,
	}
	return h
}

// HandleEvent dispatches a verified event. Every handler is safe to run more than once
// for the same event; unknown event types are acknowledged and ignored.
func (h *NotificationHandler) HandleEvent(ctx context.Context, ve *stripe_webhook.VerifiedEvent) (res *HandleResult, resErr error) {
	ev := &ve.Event
	ctx = logctx.WithActor(ctx, types.ActorWebhook)
	lg := logctx.FromCtx(ctx, h.Logger).With("event_id", ev.ID, "event_type", ev.Type, "environment", ve.Environment)

	h.journal.Received(ctx, ev.ID, string(ev.Type), ve.Environment, ve.Payload)
	defer func() {
		h.journal.Finished(ctx, ev.ID, string(ev.Type), ve.Environment, res, resErr)
		outcome := "ok"
		switch {
		case resErr != nil:
			outcome = "error"
		case res != nil && !res.Handled:
			outcome = "ignored"
		}
		metrics.WebhookEvent(string(ev.Type), outcome)
	}()

	route, ok := h.routes[ev.Type]
	if !ok {
		lg.Infow("webhook_stripe_event_ignored")
		return &HandleResult{EventID: ev.ID, EventType: string(ev.Type)}, nil
	}
	res, resErr = route(ctx, ev)
	if resErr != nil {
		lg.Errorw("webhook_stripe_handle_error", "error", resErr.Error())
		return nil, resErr
	}
	res.EventID, res.EventType, res.Handled = ev.ID, string(ev.Type), true
	lg.Infow("webhook_stripe_handled", "action", res.Action, "document_id", res.DocumentID, "applied", res.Applied)
	return res, nil
}

func (h *NotificationHandler) handleCheckoutCompleted(ctx context.Context, ev *stripe.Event) (*HandleResult, error) {
	sess, err := eventParser{ev}.CheckoutSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	docID, err := h.documentIDForSession(ctx, sess)
	if err != nil {
		return nil, err
	}
	res := &HandleResult{DocumentID: docID, SessionID: sess.ID}

	// The event type alone is not proof of payment.
	if !sess.Paid() {
		res.Action = actionlog.ActionPaymentFailed
		res.Note = fmt.Sprintf("session status=%s payment_status=%s", sess.Status, sess.PaymentStatus)
		err := h.audit.Record(ctx, nil, &actionlog.Entry{
			Action:     actionlog.ActionPaymentFailed,
			EntityType: actionlog.EntityPaymentSession,
			EntityID:   sess.ID,
			Metadata: map[string]any{
				"document_id":    docID,
				"status":         sess.Status,
				"payment_status": sess.PaymentStatus,
				"reason":         "checkout completed without paid/complete status",
			},
		})
		return res, err
	}
	if docID == "" {
		return nil, fmt.Errorf("%w: session %s carries no document", ErrMalformedEvent, sess.ID)
	}

	fees := h.checkout.ResolveFees(ctx, sess.PaymentIntentID, sess.AmountTotal, sess.Currency)

	var moved, created, settled bool
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Where("id = ?", docID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", document.ErrNotFound, docID)
			}
			return err
		}
		var err error
		if moved, err = h.docs.Transition(ctx, tx, doc.ID, lifecycle.EventPaymentConfirmed, nil); err != nil {
			return err
		}
		if created, err = h.payments.CreateIfAbsent(ctx, tx, payment.FromSession(&doc, sess, fees)); err != nil {
			return err
		}
		if settled, err = h.sessions.Settle(ctx, tx, sess.ID, models.PaymentSessionStatusCompleted, sess.PaymentIntentID); err != nil {
			return err
		}
		if !moved && !created && !settled {
			return nil
		}
		return h.audit.Record(ctx, tx, &actionlog.Entry{
			Action:     actionlog.ActionPaymentCompleted,
			EntityType: actionlog.EntityDocument,
			EntityID:   doc.ID,
			Metadata: map[string]any{
				"session_id":        sess.ID,
				"payment_intent_id": sess.PaymentIntentID,
				"gross_amount":      fees.Gross,
				"fee_amount":        fees.Fee,
				"net_amount":        fees.Gross - fees.Fee,
				"fee_estimated":     fees.Estimated,
				"document_moved":    moved,
				"payment_created":   created,
				"session_settled":   settled,
			},
		})
	})
	if errors.Is(err, document.ErrNotFound) {
		h.orphaned(ctx, sess, docID)
		res.Action, res.Note = actionlog.ActionPaymentOrphaned, "document not found"
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply checkout completion: %w", err)
	}

	res.Action = actionlog.ActionPaymentCompleted
	res.Applied = moved || created || settled
	if moved {
		h.startArrival(ctx, docID)
	}
	return res, nil
}

func (h *NotificationHandler) startArrival(ctx context.Context, docID string) {
	traceID := logctx.TraceID(ctx)
	h.async(func() {
		bg := logctx.WithTraceID(context.Background(), traceID)
		if _, err := h.arrival.Deliver(bg, docID); err != nil {
			logctx.FromCtx(bg, h.Logger).Errorw("file_arrival_failed", "document_id", docID, "err", err)
		}
	})
}

func (h *NotificationHandler) orphaned(ctx context.Context, sess *stripe_checkout.Session, docID string) {
	logctx.FromCtx(ctx, h.Logger).Errorw("payment_for_missing_document", "session_id", sess.ID, "document_id", docID, "amount", sess.AmountTotal)
	h.audit.Warn(ctx, &actionlog.Entry{
		Action:     actionlog.ActionPaymentOrphaned,
		EntityType: actionlog.EntityPaymentSession,
		EntityID:   sess.ID,
		Metadata:   map[string]any{"document_id": docID, "amount_total": sess.AmountTotal, "currency": sess.Currency},
	})
}

func (h *NotificationHandler) handleAsyncProcessing(ctx context.Context, ev *stripe.Event) (*HandleResult, error) {
	sess, err := eventParser{ev}.CheckoutSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	err = h.audit.Record(ctx, nil, &actionlog.Entry{
		Action:     actionlog.ActionPaymentProcessing,
		EntityType: actionlog.EntityPaymentSession,
		EntityID:   sess.ID,
		Metadata:   map[string]any{"document_id": sess.Metadata["document_id"], "payment_status": sess.PaymentStatus},
	})
	return &HandleResult{Action: actionlog.ActionPaymentProcessing, SessionID: sess.ID, DocumentID: sess.Metadata["document_id"]}, err
}

func (h *NotificationHandler) handleCheckoutExpired(ctx context.Context, ev *stripe.Event) (*HandleResult, error) {
	sess, err := eventParser{ev}.CheckoutSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	settled, err := h.sessions.Settle(ctx, nil, sess.ID, models.PaymentSessionStatusExpired, "")
	if err != nil {
		return nil, err
	}
	if _, err := h.audit.RecordOnce(ctx, &actionlog.Entry{
		Action:     actionlog.ActionSessionExpired,
		EntityType: actionlog.EntityPaymentSession,
		EntityID:   sess.ID,
		Metadata:   map[string]any{"document_id": sess.Metadata["document_id"], "session_settled": settled},
	}, expiredLogWindow); err != nil {
		return nil, err
	}
	return &HandleResult{Action: actionlog.ActionSessionExpired, SessionID: sess.ID, DocumentID: sess.Metadata["document_id"], Applied: settled}, nil
}

func (h *NotificationHandler) handlePaymentIntentFailed(ctx context.Context, ev *stripe.Event) (*HandleResult, error) {
	pi, err := eventParser{ev}.PaymentIntent()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	code, msg := intentError(pi)
	meta := map[string]any{"payment_intent_id": pi.ID, "error_code": code, "error_message": msg}

	sess, err := h.sessions.FindForIntent(ctx, pi.ID, pi.Metadata)
	if err != nil {
		return nil, err
	}
	res := &HandleResult{Action: actionlog.ActionPaymentIntentFailed}
	entry := &actionlog.Entry{Action: actionlog.ActionPaymentIntentFailed, EntityType: actionlog.EntityPaymentSession, EntityID: pi.ID, Metadata: meta}
	if sess != nil {
		settled, err := h.sessions.Settle(ctx, nil, sess.SessionID, models.PaymentSessionStatusFailed, pi.ID)
		if err != nil {
			return nil, err
		}
		res.SessionID, res.DocumentID, res.Applied = sess.SessionID, sess.DocumentID, settled
		entry.EntityID = sess.SessionID
		meta["document_id"] = sess.DocumentID
		meta["session_settled"] = settled
	} else {
		res.Note = "no matching session"
	}
	return res, h.audit.Record(ctx, nil, entry)
}

func (h *NotificationHandler) handlePaymentIntentSucceeded(ctx context.Context, ev *stripe.Event) (*HandleResult, error) {
	pi, err := eventParser{ev}.PaymentIntent()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	err = h.audit.Record(ctx, nil, &actionlog.Entry{
		Action:     actionlog.ActionPaymentIntentSuccess,
		EntityType: actionlog.EntityPaymentSession,
		EntityID:   pi.ID,
		Metadata:   map[string]any{"amount": pi.Amount, "currency": string(pi.Currency), "document_id": pi.Metadata["document_id"]},
	})
	return &HandleResult{Action: actionlog.ActionPaymentIntentSuccess, DocumentID: pi.Metadata["document_id"]}, err
}

// documentIDForSession prefers the session metadata and falls back to the local session row.
func (h *NotificationHandler) documentIDForSession(ctx context.Context, sess *stripe_checkout.Session) (string, error) {
	if id := sess.Metadata["document_id"]; id != "" {
		return id, nil
	}
	row, err := h.sessions.Get(ctx, nil, sess.ID)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", nil
	}
	return row.DocumentID, nil
}

var Module = fx.Options(
	fx.Provide(NewNotificationHandler),
)
