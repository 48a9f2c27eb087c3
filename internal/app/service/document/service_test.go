package document

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/db/dbtest"
	"github.com/fatflowers/docpay/internal/platform/pdfpages"
	"github.com/fatflowers/docpay/internal/platform/pdfpages/pdftest"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout/checkouttest"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/tool"
	"github.com/fatflowers/docpay/pkg/types"
)

type fixture struct {
	db       *gorm.DB
	svc      *Service
	checkout *checkouttest.Fake
	audit    *actionlog.Service
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
	return &fixture{
		db:       db,
		svc:      New(db, cfg, log, pdfpages.NewCounter(log), checkout, audit),
		checkout: checkout,
		audit:    audit,
	}
}

func (f *fixture) insert(t *testing.T, doc *models.Document) *models.Document {
	t.Helper()
	if doc.ID == "" {
		doc.ID = tool.GenerateUUIDV7()
	}
	if doc.UserID == "" {
		doc.UserID = "u1"
	}
	if doc.Filename == "" {
		doc.Filename = "a.pdf"
		doc.OriginalFilename = "a.pdf"
	}
	if doc.Pages == 0 {
		doc.Pages = 3
	}
	require.NoError(t, f.db.Create(doc).Error)
	return doc
}

func (f *fixture) reload(t *testing.T, id string) *models.Document {
	t.Helper()
	doc, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateDraft(ctx, &DraftRequest{
		UserID:       "u1",
		DocumentType: types.DocumentTypeCertified,
		Filename:     "My Contract (final).pdf",
		Data:         pdftest.Build(3),
	})
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusDraft, res.Document.Status)
	require.Equal(t, 3, res.Document.Pages)
	require.Equal(t, "75.00", res.Document.TotalCost.StringFixed(2))
	require.Equal(t, "My_Contract__final_.pdf", res.Document.Filename)
	require.NotEmpty(t, res.CheckoutURL)

	require.Len(t, f.checkout.Created, 1)
	require.Equal(t, int64(2500), f.checkout.Created[0].UnitAmount)
	require.Equal(t, int64(3), f.checkout.Created[0].Pages)

	staged, err := f.svc.ReadStaged(res.Document)
	require.NoError(t, err)
	require.Equal(t, pdftest.Build(3), staged)

	sess, err := f.svc.LatestSession(ctx, nil, res.Document.ID)
	require.NoError(t, err)
	require.Equal(t, res.SessionID, sess.SessionID)
	require.Equal(t, models.PaymentSessionStatusPending, sess.PaymentStatus)

	logs, err := f.audit.List(ctx, actionlog.EntityDocument, res.Document.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, actionlog.ActionDraftCreated, logs[0].Action)
	require.Equal(t, "u1", logs[0].Actor)

	f.svc.RemoveStaged(ctx, res.Document)
	_, err = os.Stat(res.Document.StagedPath)
	require.True(t, os.IsNotExist(err))
}

func TestCreateDraft_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDraft(ctx, &DraftRequest{UserID: "u1", Filename: "a.pdf", Data: []byte("hello world")})
	require.ErrorIs(t, err, ErrNotPDF)

	_, err = f.svc.CreateDraft(ctx, &DraftRequest{UserID: "u1", Filename: "a.pdf"})
	require.ErrorIs(t, err, ErrEmptyFile)

	_, err = f.svc.CreateDraft(ctx, &DraftRequest{UserID: "u1", DocumentType: "poetic", Data: pdftest.Build(1)})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.CreateDraft(ctx, &DraftRequest{Data: pdftest.Build(1)})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, f.checkout.Created)
}

func TestTransition_IsConditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.insert(t, &models.Document{Status: models.DocumentStatusDraft})

	ok, err := f.svc.Transition(ctx, nil, doc.ID, lifecycle.EventPaymentConfirmed, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.DocumentStatusPending, f.reload(t, doc.ID).Status)

	ok, err = f.svc.Transition(ctx, nil, doc.ID, lifecycle.EventPaymentConfirmed, nil)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.svc.Transition(ctx, nil, doc.ID, lifecycle.EventAbandoned, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, models.DocumentStatusPending, f.reload(t, doc.ID).Status)

	_, err = f.svc.Transition(ctx, nil, doc.ID, lifecycle.EventPaymentConfirmed, map[string]any{"file_url": "x"})
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestFileURLOnlyInFileHoldingStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.insert(t, &models.Document{Status: models.DocumentStatusDraft})
	pending := f.insert(t, &models.Document{Status: models.DocumentStatusPending})

	ok, err := f.svc.MarkFileStored(ctx, draft.ID, "documents/u1/x/a.pdf")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, f.reload(t, draft.ID).FileURL)

	ok, err = f.svc.MarkFileStored(ctx, pending.ID, "documents/u1/y/a.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	got := f.reload(t, pending.ID)
	require.Equal(t, models.DocumentStatusProcessing, got.Status)
	require.Equal(t, "documents/u1/y/a.pdf", *got.FileURL)

	var docs []*models.Document
	require.NoError(t, f.db.Find(&docs).Error)
	for _, d := range docs {
		if d.FileURL != nil {
			require.True(t, lifecycle.CanHoldFile(d.Status), d.ID)
		}
	}
}

func TestUploadFailedThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.insert(t, &models.Document{Status: models.DocumentStatusPending})

	ok, err := f.svc.MarkUploadFailed(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got := f.reload(t, doc.ID)
	require.Equal(t, models.DocumentStatusPending, got.Status)
	require.True(t, got.MissingFile())

	ok, err = f.svc.CompleteRetry(ctx, doc.ID, "documents/u1/d/a.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	got = f.reload(t, doc.ID)
	require.Equal(t, models.DocumentStatusPending, got.Status)
	require.Nil(t, got.UploadFailedAt)
	require.Equal(t, 1, got.UploadRetryCount)
	require.Equal(t, "documents/u1/d/a.pdf", lo.FromPtr(got.FileURL))
	require.False(t, got.MissingFile())

	ok, err = f.svc.MarkUploadFailed(ctx, doc.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListMissingFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paid := func(doc *models.Document) {
		require.NoError(t, f.db.Create(&models.Payment{
			ID: tool.GenerateUUIDV7(), DocumentID: doc.ID, UserID: doc.UserID, SessionID: "cs_test_" + doc.ID,
			Amount: 100, GrossAmount: 100, Currency: "eur", Status: models.PaymentStatusCompleted,
		}).Error)
	}
	missing := f.insert(t, &models.Document{Status: models.DocumentStatusPending, UserID: "u1"})
	paid(missing)
	_, err := f.svc.MarkUploadFailed(ctx, missing.ID)
	require.NoError(t, err)

	other := f.insert(t, &models.Document{Status: models.DocumentStatusPending, UserID: "u2"})
	paid(other)

	stored := f.insert(t, &models.Document{Status: models.DocumentStatusProcessing, UserID: "u1", FileURL: lo.ToPtr("documents/k")})
	paid(stored)

	f.insert(t, &models.Document{Status: models.DocumentStatusPending, UserID: "u1"})
	f.insert(t, &models.Document{Status: models.DocumentStatusDraft, UserID: "u1"})

	docs, total, err := f.svc.ListMissingFile(ctx, &MissingFileFilter{UserID: "u1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, missing.ID, docs[0].ID)

	docs, total, err = f.svc.ListMissingFile(ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, docs, 2)

	filters := types.FiltersAnd{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"u2"}}}
	docs, _, err = f.svc.ListMissingFile(ctx, &MissingFileFilter{Filters: filters})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, other.ID, docs[0].ID)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListDraftsAndDeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	old := f.insert(t, &models.Document{Status: models.DocumentStatusDraft, CreatedAt: now.Add(-2 * time.Hour)})
	older := f.insert(t, &models.Document{Status: models.DocumentStatusDraft, CreatedAt: now.Add(-3 * time.Hour)})
	f.insert(t, &models.Document{Status: models.DocumentStatusDraft, CreatedAt: now.Add(-10 * time.Minute)})
	f.insert(t, &models.Document{Status: models.DocumentStatusDraft, CreatedAt: now.Add(-30 * 24 * time.Hour)})
	paid := f.insert(t, &models.Document{Status: models.DocumentStatusPending, CreatedAt: now.Add(-2 * time.Hour)})

	drafts, err := f.svc.ListDrafts(ctx, now.Add(-7*24*time.Hour), now.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Equal(t, []string{older.ID, old.ID}, lo.Map(drafts, func(d *models.Document, _ int) string { return d.ID }))

	ok, err := f.svc.DeleteDraft(ctx, old.ID)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.svc.Get(ctx, old.ID)
	require.ErrorIs(t, err, ErrNotFound)

	ok, err = f.svc.DeleteDraft(ctx, paid.ID)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, models.DocumentStatusPending, f.reload(t, paid.ID).Status)
}
