package recovery

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/delivery"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	"github.com/fatflowers/docpay/internal/app/service/upload"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/db/dbtest"
	"github.com/fatflowers/docpay/internal/platform/objectstore/objectstoretest"
	"github.com/fatflowers/docpay/internal/platform/pdfpages"
	"github.com/fatflowers/docpay/internal/platform/pdfpages/pdftest"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout/checkouttest"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/tool"
	"github.com/fatflowers/docpay/pkg/types"
)

type recordingSender struct {
	mu   sync.Mutex
	reqs []*delivery.DeliveryRequest
}

func (r *recordingSender) Notify(_ context.Context, req *delivery.DeliveryRequest) (*delivery.DeliveryResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return &delivery.DeliveryResult{Sent: true}, nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

type fixture struct {
	db     *gorm.DB
	docs   *document.Service
	store  *objectstoretest.MemStore
	sender *recordingSender
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	cfg := &config.Config{
		Storage:  config.StorageConfig{StagingDir: t.TempDir()},
		Pricing:  config.PricingConfig{PerPage: "25.00", Currency: "eur"},
		Recovery: config.RecoveryConfig{MaxFileSize: types.MaxUploadSize, MaxAttempts: 3, Backoff: time.Millisecond},
	}
	audit := actionlog.New(db, log)
	counter := pdfpages.NewCounter(log)
	docs := document.New(db, cfg, log, counter, checkouttest.New(), audit)
	store := objectstoretest.New()
	sender := &recordingSender{}
	return &fixture{
		db:     db,
		docs:   docs,
		store:  store,
		sender: sender,
		svc:    New(cfg, docs, counter, upload.NewUploader(store, cfg, log), sender, audit, log),
	}
}

// missingFileDocument returns a paid document of the given page count whose upload failed.
func (f *fixture) missingFileDocument(t *testing.T, userID string, pages int) *models.Document {
	t.Helper()
	ctx := context.Background()
	res, err := f.docs.CreateDraft(ctx, &document.DraftRequest{UserID: userID, Filename: "scan.pdf", Data: pdftest.Build(pages)})
	require.NoError(t, err)
	doc := res.Document
	_, err = f.docs.Transition(ctx, nil, doc.ID, lifecycle.EventPaymentConfirmed, nil)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.Payment{
		ID: tool.GenerateUUIDV7(), DocumentID: doc.ID, UserID: userID, SessionID: res.SessionID,
		Amount: 7252, GrossAmount: 7500, FeeAmount: 248, Currency: "eur", Status: models.PaymentStatusCompleted,
	}).Error)
	_, err = f.docs.MarkUploadFailed(ctx, doc.ID)
	require.NoError(t, err)
	return doc
}

func (f *fixture) reload(t *testing.T, id string) *models.Document {
	t.Helper()
	doc, err := f.docs.Get(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func TestRetryUpload_PageCountMismatchNamesBothCounts(t *testing.T) {
	f := newFixture(t)
	doc := f.missingFileDocument(t, "u1", 3)

	res := f.svc.RetryUpload(context.Background(), doc.ID, &UploadFile{Filename: "scan.pdf", Data: pdftest.Build(2)})
	require.False(t, res.Success)
	require.Equal(t, "page count mismatch: paid for 3 pages, uploaded file has 2 pages", res.Error)
	require.Equal(t, doc.ID, res.DocumentID)

	require.Equal(t, 0, f.store.PutCount())
	got := f.reload(t, doc.ID)
	require.True(t, got.MissingFile())
	require.Equal(t, 0, got.UploadRetryCount)
}

func TestRetryUpload_Succeeds(t *testing.T) {
	f := newFixture(t)
	doc := f.missingFileDocument(t, "u1", 3)

	res := f.svc.RetryUpload(context.Background(), doc.ID, &UploadFile{Filename: "scan-again.pdf", Data: pdftest.Build(3)})
	require.True(t, res.Success, res.Error)
	key := upload.ObjectKey("u1", doc.ID, "scan.pdf")
	require.Equal(t, key, res.FileURL)

	got := f.reload(t, doc.ID)
	require.Equal(t, models.DocumentStatusPending, got.Status)
	require.Equal(t, key, *got.FileURL)
	require.Nil(t, got.UploadFailedAt)
	require.Equal(t, 1, got.UploadRetryCount)
	require.True(t, lifecycle.CanHoldFile(got.Status))

	require.Equal(t, 1, f.sender.count())
	require.Equal(t, delivery.SourceRecovery, f.sender.reqs[0].Source)

	res = f.svc.RetryUpload(context.Background(), doc.ID, &UploadFile{Filename: "scan.pdf", Data: pdftest.Build(3)})
	require.False(t, res.Success)
	require.Equal(t, MsgAlreadyStored, res.Error)
}

func TestRetryUpload_TransientFailuresAreRetried(t *testing.T) {
	f := newFixture(t)
	doc := f.missingFileDocument(t, "u1", 1)
	slow := minio.ErrorResponse{Code: "RequestTimeout", StatusCode: http.StatusBadRequest}
	f.store.PutErrs = []error{slow, slow}

	res := f.svc.RetryUpload(context.Background(), doc.ID, &UploadFile{Filename: "scan.pdf", Data: pdftest.Build(1)})
	require.True(t, res.Success, res.Error)
	require.Equal(t, 3, f.store.PutCount())
}

func TestRetryUpload_StoreFailureLeavesDocumentUntouched(t *testing.T) {
	f := newFixture(t)
	doc := f.missingFileDocument(t, "u1", 1)
	f.store.PutErrs = []error{minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}}

	res := f.svc.RetryUpload(context.Background(), doc.ID, &UploadFile{Filename: "scan.pdf", Data: pdftest.Build(1)})
	require.False(t, res.Success)
	require.Equal(t, MsgUploadFailed, res.Error)
	require.Equal(t, 1, f.store.PutCount())
	require.True(t, f.reload(t, doc.ID).MissingFile())
	require.Equal(t, 0, f.sender.count())
}

func TestRetryUpload_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.missingFileDocument(t, "u1", 1)

	res := f.svc.RetryUpload(ctx, doc.ID, &UploadFile{Filename: "scan.pdf"})
	require.Equal(t, MsgEmptyFile, res.Error)

	res = f.svc.RetryUpload(ctx, doc.ID, &UploadFile{Filename: "scan.pdf", Data: []byte("GIF89a not a pdf")})
	require.Equal(t, MsgNotPDF, res.Error)

	res = f.svc.RetryUpload(ctx, "nope", &UploadFile{Filename: "scan.pdf", Data: pdftest.Build(1)})
	require.Equal(t, MsgDocumentNotFound, res.Error)

	unpaid, err := f.docs.CreateDraft(ctx, &document.DraftRequest{UserID: "u1", Filename: "x.pdf", Data: pdftest.Build(1)})
	require.NoError(t, err)
	res = f.svc.RetryUpload(ctx, unpaid.Document.ID, &UploadFile{Filename: "x.pdf", Data: pdftest.Build(1)})
	require.Equal(t, MsgPaymentNotVerified, res.Error)

	require.Equal(t, 0, f.store.PutCount())
}

func TestRetryUpload_ConcurrentRetriesApplyOnce(t *testing.T) {
	f := newFixture(t)
	doc := f.missingFileDocument(t, "u1", 2)

	var wg sync.WaitGroup
	results := make([]*RetryResult, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.RetryUpload(context.Background(), doc.ID, &UploadFile{Filename: "scan.pdf", Data: pdftest.Build(2)})
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		if !r.Success {
			require.Contains(t, []string{MsgAlreadyStored, MsgStateChanged}, r.Error)
		}
	}
	require.Equal(t, 1, f.reload(t, doc.ID).UploadRetryCount)
	require.Equal(t, 1, f.sender.count())
}

func TestRetryUpload_OverlappingRetriesCheckTheirOwnFile(t *testing.T) {
	f := newFixture(t)
	doc := f.missingFileDocument(t, "u1", 3)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.store.OnPut = func(string) {
		once.Do(func() { close(entered) })
		<-release
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan *RetryResult, 1)
	go func() {
		first <- f.svc.RetryUpload(ctx, doc.ID, &UploadFile{Filename: "scan.pdf", Data: pdftest.Build(3)})
	}()
	<-entered

	second := f.svc.RetryUpload(context.Background(), doc.ID, &UploadFile{Filename: "short.pdf", Data: pdftest.Build(2)})
	require.False(t, second.Success)
	require.Equal(t, "page count mismatch: paid for 3 pages, uploaded file has 2 pages", second.Error)

	cancel()
	close(release)
	res := <-first
	require.True(t, res.Success, res.Error)

	got := f.reload(t, doc.ID)
	require.NotNil(t, got.FileURL)
	require.Equal(t, 1, got.UploadRetryCount)
	require.Equal(t, 1, f.store.PutCount())
	require.Equal(t, 1, f.sender.count())
}

func TestListMissingFileDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.missingFileDocument(t, "u1", 1)
	f.missingFileDocument(t, "u2", 1)

	res, err := f.svc.ListMissingFileDocuments(ctx, &ListMissingRequest{UserID: "u1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, mine.ID, res.Documents[0].ID)
	require.True(t, res.Documents[0].NeedsRecovery)

	res, err = f.svc.ListMissingFileDocuments(ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)

	_, err = f.svc.ListMissingFileDocuments(ctx, &ListMissingRequest{Filters: []*types.CommonFilter{
		{Field: "staged_path", Operator: types.CommonFilterOperatorEq, Values: []any{"/etc"}},
	}})
	require.ErrorIs(t, err, ErrInvalidFilter)

	res, err = f.svc.ListMissingFileDocuments(ctx, &ListMissingRequest{Filters: []*types.CommonFilter{
		{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"u2"}},
	}})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
}
