// Package sweeper reconciles stale checkout sessions with the processor and removes
// abandoned drafts.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/payment"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/objectstore"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/metrics"
	"github.com/fatflowers/docpay/pkg/types"
)

const (
	ReasonNoSession      = "no payment session"
	ReasonSessionClosed  = "session %s"
	ReasonPaid           = "payment completed"
	ReasonAbandoned      = "pending session idle since %s"
	ReasonInFlight       = "pending session updated %s ago, payment may be in flight"
	ReasonUnknownSession = "unknown session status %q"
	ReasonSessionLookup  = "session lookup failed"
)

type ReportItem struct {
	DocumentID    string    `json:"documentId"`
	UserID        string    `json:"userId"`
	Filename      string    `json:"filename"`
	CreatedAt     time.Time `json:"createdAt"`
	SessionID     string    `json:"sessionId,omitempty"`
	SessionStatus string    `json:"sessionStatus,omitempty"`
	Reason        string    `json:"reason"`
}

type Report struct {
	DocumentsToCleanup []*ReportItem `json:"documentsToCleanup"`
	DocumentsToKeep    []*ReportItem `json:"documentsToKeep"`
}

// Summary is returned by both Report and Run; Report leaves the deletion counters at zero.
type Summary struct {
	Checked         int      `json:"checked"`
	Deleted         int      `json:"deleted"`
	StorageDeleted  int      `json:"storageDeleted"`
	SessionsDeleted int      `json:"sessionsDeleted"`
	Errors          []string `json:"errors"`
	Report          *Report  `json:"report,omitempty"`
}

type SyncSummary struct {
	Checked   int      `json:"checked"`
	Skipped   int      `json:"skipped"`
	Expired   int      `json:"expired"`
	Completed int      `json:"completed"`
	Unchanged int      `json:"unchanged"`
	Errors    []string `json:"errors"`
}

type Service struct {
	cfg      config.SweeperConfig
	docs     *document.Service
	sessions *payment.Sessions
	checkout stripe_checkout.Client
	store    objectstore.Store
	audit    *actionlog.Service
	log      *zap.SugaredLogger
	limiter  *rate.Limiter
	now      func() time.Time
}

func New(cfg *config.Config, docs *document.Service, sessions *payment.Sessions, checkout stripe_checkout.Client,
	store objectstore.Store, audit *actionlog.Service, log *zap.SugaredLogger) *Service {
	sc := withDefaults(cfg.Sweeper)
	return &Service{
		cfg:      sc,
		docs:     docs,
		sessions: sessions,
		checkout: checkout,
		store:    store,
		audit:    audit,
		log:      log,
		limiter:  rate.NewLimiter(rate.Every(sc.CallInterval), 1),
		now:      time.Now,
	}
}

func withDefaults(c config.SweeperConfig) config.SweeperConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MinAge <= 0 {
		c.MinAge = 30 * time.Minute
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
	if c.SessionStaleAfter <= 0 {
		c.SessionStaleAfter = 30 * time.Minute
	}
	if c.PendingAbandonAfter <= 0 {
		c.PendingAbandonAfter = time.Hour
	}
	if c.CallInterval <= 0 {
		c.CallInterval = 200 * time.Millisecond
	}
	return c
}

// SyncSessions asks the processor about pending sessions nobody has heard from for a while
// and settles the ones it reports as finished. Sessions minted under the other key mode
// are skipped.
func (s *Service) SyncSessions(ctx context.Context) (*SyncSummary, error) {
	ctx = logctx.WithActor(ctx, types.ActorSweeper)
	lg := logctx.FromCtx(ctx, s.log)
	stale, err := s.sessions.StalePending(ctx, s.now().Add(-s.cfg.SessionStaleAfter), s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	sum := &SyncSummary{Errors: []string{}}
	live := s.checkout.LiveMode()
	for _, row := range stale {
		sum.Checked++
		if mode, known := stripe_checkout.SessionLiveMode(row.SessionID); known && mode != live {
			sum.Skipped++
			lg.Infow("sweeper_session_mode_mismatch", "session_id", row.SessionID, "live", live)
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return sum, err
		}
		remote, err := s.checkout.GetSession(ctx, row.SessionID)
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", row.SessionID, err))
			lg.Warnw("sweeper_session_fetch_failed", "session_id", row.SessionID, "err", err)
			continue
		}
		to, ok := s.settledStatus(remote)
		if !ok {
			sum.Unchanged++
			continue
		}
		moved, err := s.sessions.Settle(ctx, nil, row.SessionID, to, remote.PaymentIntentID)
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", row.SessionID, err))
			continue
		}
		if !moved {
			sum.Unchanged++
			continue
		}
		if to == models.PaymentSessionStatusCompleted {
			sum.Completed++
		} else {
			sum.Expired++
		}
		metrics.SweeperOutcome("session_" + string(to))
		s.audit.Warn(ctx, &actionlog.Entry{
			Action:     actionlog.ActionSessionSynced,
			EntityType: actionlog.EntityPaymentSession,
			EntityID:   row.SessionID,
			Metadata: map[string]any{
				"document_id":    row.DocumentID,
				"status":         remote.Status,
				"payment_status": remote.PaymentStatus,
				"settled_as":     to,
			},
		})
	}
	lg.Infow("sweeper_sessions_synced", "checked", sum.Checked, "expired", sum.Expired, "completed", sum.Completed, "skipped", sum.Skipped)
	return sum, nil
}

func (s *Service) settledStatus(remote *stripe_checkout.Session) (models.PaymentSessionStatus, bool) {
	switch {
	case remote.Status == "expired":
		return models.PaymentSessionStatusExpired, true
	case remote.Paid():
		return models.PaymentSessionStatusCompleted, true
	case remote.Status == "open" && !remote.ExpiresAt.IsZero() && remote.ExpiresAt.Before(s.now()):
		return models.PaymentSessionStatusExpired, true
	}
	return "", false
}

type candidate struct {
	doc     *models.Document
	session *models.PaymentSession
	safe    bool
	reason  string
}

func (s *Service) candidates(ctx context.Context) ([]*candidate, error) {
	now := s.now()
	drafts, err := s.docs.ListDrafts(ctx, now.Add(-s.cfg.MaxAge), now.Add(-s.cfg.MinAge), s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	out := make([]*candidate, 0, len(drafts))
	for _, d := range drafts {
		c := &candidate{doc: d}
		sess, err := s.docs.LatestSession(ctx, nil, d.ID)
		if err != nil {
			c.reason = ReasonSessionLookup
			out = append(out, c)
			continue
		}
		c.session = sess
		c.safe, c.reason = s.judge(sess, now)
		out = append(out, c)
	}
	return out, nil
}

// judge decides whether a draft with latest session sess may be deleted. Anything it does
// not recognise is kept.
func (s *Service) judge(sess *models.PaymentSession, now time.Time) (bool, string) {
	if sess == nil {
		return true, ReasonNoSession
	}
	switch sess.PaymentStatus {
	case models.PaymentSessionStatusExpired, models.PaymentSessionStatusFailed:
		return true, fmt.Sprintf(ReasonSessionClosed, sess.PaymentStatus)
	case models.PaymentSessionStatusCompleted:
		return false, ReasonPaid
	case models.PaymentSessionStatusPending:
		idle := now.Sub(sess.UpdatedAt)
		if idle >= s.cfg.PendingAbandonAfter {
			return true, fmt.Sprintf(ReasonAbandoned, sess.UpdatedAt.UTC().Format(time.RFC3339))
		}
		return false, fmt.Sprintf(ReasonInFlight, idle.Truncate(time.Second))
	}
	return false, fmt.Sprintf(ReasonUnknownSession, sess.PaymentStatus)
}

func (c *candidate) item() *ReportItem {
	it := &ReportItem{
		DocumentID: c.doc.ID,
		UserID:     c.doc.UserID,
		Filename:   c.doc.Filename,
		CreatedAt:  c.doc.CreatedAt,
		Reason:     c.reason,
	}
	if c.session != nil {
		it.SessionID, it.SessionStatus = c.session.SessionID, string(c.session.PaymentStatus)
	}
	return it
}

func buildReport(cands []*candidate) *Report {
	r := &Report{DocumentsToCleanup: []*ReportItem{}, DocumentsToKeep: []*ReportItem{}}
	for _, c := range cands {
		if c.safe {
			r.DocumentsToCleanup = append(r.DocumentsToCleanup, c.item())
		} else {
			r.DocumentsToKeep = append(r.DocumentsToKeep, c.item())
		}
	}
	return r
}

// Report lists what Run would delete and what it would keep, without touching anything.
func (s *Service) Report(ctx context.Context) (*Summary, error) {
	cands, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}
	return &Summary{Checked: len(cands), Errors: []string{}, Report: buildReport(cands)}, nil
}

// Run deletes the drafts judged safe. For each one the stored object goes first, then the
// sessions, then the document row, which is only removed while it is still a draft.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	ctx = logctx.WithActor(ctx, types.ActorSweeper)
	lg := logctx.FromCtx(ctx, s.log)
	cands, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Checked: len(cands), Errors: []string{}, Report: buildReport(cands)}
	for _, c := range cands {
		if !c.safe {
			metrics.SweeperOutcome("kept")
			continue
		}
		if err := s.remove(ctx, c, sum); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", c.doc.ID, err))
			metrics.SweeperOutcome("error")
			lg.Warnw("sweeper_delete_failed", "document_id", c.doc.ID, "err", err)
		}
	}
	lg.Infow("sweeper_run_finished", "checked", sum.Checked, "deleted", sum.Deleted, "errors", len(sum.Errors))
	return sum, nil
}

func (s *Service) remove(ctx context.Context, c *candidate, sum *Summary) error {
	doc := c.doc
	storageDeleted := false
	if doc.FileURL != nil && *doc.FileURL != "" && !objectstore.IsResolvedURL(*doc.FileURL) {
		if err := s.store.Delete(ctx, *doc.FileURL); err != nil {
			return fmt.Errorf("failed to delete object: %w", err)
		}
		storageDeleted = true
		sum.StorageDeleted++
	}
	n, err := s.sessions.DeleteForDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	sum.SessionsDeleted += int(n)
	deleted, err := s.docs.DeleteDraft(ctx, doc.ID)
	if err != nil {
		return err
	}
	if !deleted {
		metrics.SweeperOutcome("raced")
		return nil
	}
	sum.Deleted++
	metrics.SweeperOutcome("deleted")
	s.docs.RemoveStaged(ctx, doc)
	s.audit.Warn(ctx, &actionlog.Entry{
		Action:     actionlog.ActionDraftDeleted,
		EntityType: actionlog.EntityDocument,
		EntityID:   doc.ID,
		Metadata: map[string]any{
			"user_id":          doc.UserID,
			"filename":         doc.Filename,
			"reason":           c.reason,
			"storage_deleted":  storageDeleted,
			"sessions_deleted": n,
		},
	})
	return nil
}
