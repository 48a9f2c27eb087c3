package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/automation"
	"github.com/fatflowers/docpay/internal/platform/db/dbtest"
	"github.com/fatflowers/docpay/internal/platform/objectstore/objectstoretest"
	"github.com/fatflowers/docpay/pkg/config"
)

type stubAutomation struct {
	mu       sync.Mutex
	payloads []*automation.Payload
	errs     []error
}

func (s *stubAutomation) Send(_ context.Context, p *automation.Payload) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return 502, err
		}
	}
	return 200, nil
}

func (s *stubAutomation) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

type fixture struct {
	db     *gorm.DB
	cfg    *config.Config
	store  *objectstoretest.MemStore
	client *stubAutomation
	audit  *actionlog.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	return &fixture{
		db: db,
		cfg: &config.Config{
			Storage:    config.StorageConfig{Bucket: "documents", SignedURLTTL: 24 * time.Hour},
			Automation: config.AutomationConfig{DedupWindow: 2 * time.Minute},
		},
		store:  objectstoretest.New(),
		client: &stubAutomation{},
		audit:  actionlog.New(db, zap.NewNop().Sugar()),
	}
}

func (f *fixture) notifier() *Notifier {
	return NewNotifier(f.db, f.cfg, zap.NewNop().Sugar(), f.store, f.client, f.audit)
}

func (f *fixture) doc(t *testing.T) *models.Document {
	t.Helper()
	doc := &models.Document{
		ID:               "0190f0d6-0000-7000-8000-000000000001",
		UserID:           "u1",
		Filename:         "contract.pdf",
		OriginalFilename: "contract.pdf",
		DocumentType:     "certified",
		Status:           models.DocumentStatusProcessing,
		Pages:            3,
		TotalCost:        decimal.RequireFromString("75"),
	}
	require.NoError(t, f.db.Create(doc).Error)
	return doc
}

func TestNotify_SendsOnceAcrossTriggers(t *testing.T) {
	f := newFixture(t)
	doc := f.doc(t)
	ctx := context.Background()
	n := f.notifier()

	res, err := n.Notify(ctx, &DeliveryRequest{Document: doc, FileRef: "documents/u1/d/contract.pdf", Size: 10, Source: SourceArrival})
	require.NoError(t, err)
	require.True(t, res.Sent)

	res, err = n.Notify(ctx, &DeliveryRequest{Document: doc, FileRef: "documents/u1/d/contract.pdf", Source: SourceStorageEvent})
	require.NoError(t, err)
	require.True(t, res.AlreadyProcessed)
	require.Equal(t, MessageAlreadyProcessed, res.Message)

	// another process has its own cache; only the durable claim stops it
	res, err = f.notifier().Notify(ctx, &DeliveryRequest{Document: doc, FileRef: "documents/u1/d/contract.pdf", Source: SourceStorageEvent})
	require.NoError(t, err)
	require.True(t, res.AlreadyProcessed)

	require.Equal(t, 1, f.client.sent())
	p := f.client.payloads[0]
	require.Equal(t, "https://storage.test/documents/documents/u1/d/contract.pdf?expires=86400", p.FileURL)
	require.Equal(t, 3, p.PageCount)
	require.Equal(t, "75.00", p.Cost)
	require.Equal(t, "application/pdf", p.MimeType)

	rec, err := n.Record(ctx, "u1", "contract.pdf")
	require.NoError(t, err)
	require.Equal(t, models.DeliveryStatusSent, rec.Status)
	require.Equal(t, 200, rec.ResponseCode)
}

func TestNotify_ConcurrentTriggersSendOnce(t *testing.T) {
	f := newFixture(t)
	doc := f.doc(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.notifier().Notify(context.Background(), &DeliveryRequest{Document: doc, FileRef: "https://cdn.test/contract.pdf", Source: SourceStorageEvent})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, f.client.sent())
	require.Equal(t, "https://cdn.test/contract.pdf", f.client.payloads[0].FileURL)
}

func TestNotify_ResendsAfterWindow(t *testing.T) {
	f := newFixture(t)
	doc := f.doc(t)
	ctx := context.Background()

	first := f.notifier()
	_, err := first.Notify(ctx, &DeliveryRequest{Document: doc, FileRef: "k", Source: SourceArrival})
	require.NoError(t, err)

	later := f.notifier()
	later.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	res, err := later.Notify(ctx, &DeliveryRequest{Document: doc, FileRef: "k", Source: SourceRecovery})
	require.NoError(t, err)
	require.True(t, res.Sent)
	require.Equal(t, 2, f.client.sent())

	rec, err := later.Record(ctx, "u1", "contract.pdf")
	require.NoError(t, err)
	require.Equal(t, 2, rec.Sends)
	require.Equal(t, SourceRecovery, rec.Source)
}

func TestNotify_FailureIsReportedAndReleasesClaim(t *testing.T) {
	f := newFixture(t)
	doc := f.doc(t)
	ctx := context.Background()
	f.client.errs = []error{&automation.SendError{StatusCode: 502, Body: "bad gateway"}}
	n := f.notifier()

	res, err := n.Notify(ctx, &DeliveryRequest{Document: doc, FileRef: "k", Source: SourceArrival})
	require.NoError(t, err)
	require.False(t, res.Sent)
	require.Equal(t, 502, res.StatusCode)
	require.Contains(t, res.Message, "502")

	rec, err := n.Record(ctx, "u1", "contract.pdf")
	require.NoError(t, err)
	require.Equal(t, models.DeliveryStatusFailed, rec.Status)

	res, err = n.Notify(ctx, &DeliveryRequest{Document: doc, FileRef: "k", Source: SourceRecovery})
	require.NoError(t, err)
	require.True(t, res.Sent)
	require.Equal(t, 2, f.client.sent())

	logs, err := f.audit.List(ctx, actionlog.EntityDocument, doc.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, actionlog.ActionDeliveryFailed, logs[0].Action)
	require.Equal(t, actionlog.ActionDeliverySent, logs[1].Action)
}

func TestNotify_RequiresDocumentAndRef(t *testing.T) {
	f := newFixture(t)
	_, err := f.notifier().Notify(context.Background(), &DeliveryRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func newStorageEvent(t *testing.T, typ string, obj ObjectFinalized) cloudevents.Event {
	t.Helper()
	e := cloudevents.NewEvent()
	e.SetID("ce-1")
	e.SetSource("//storage.test/buckets/documents")
	e.SetType(typ)
	require.NoError(t, e.SetData(cloudevents.ApplicationJSON, obj))
	return e
}

func TestStorageEvents_Handle(t *testing.T) {
	f := newFixture(t)
	doc := f.doc(t)
	ctx := context.Background()
	docs := document.New(f.db, f.cfg, zap.NewNop().Sugar(), nil, nil, f.audit)
	se := NewStorageEvents(f.cfg, docs, f.notifier(), zap.NewNop().Sugar())

	key := "documents/u1/" + doc.ID + "/contract.pdf"
	res, err := se.Handle(ctx, newStorageEvent(t, "google.cloud.storage.object.v1.finalized",
		ObjectFinalized{Bucket: "documents", Name: key, Size: "2048", ContentType: "application/pdf"}))
	require.NoError(t, err)
	require.True(t, res.Sent)
	require.Equal(t, int64(2048), f.client.payloads[0].Size)

	_, err = se.Handle(ctx, newStorageEvent(t, "google.cloud.storage.object.v1.finalized",
		ObjectFinalized{Bucket: "other", Name: key}))
	require.ErrorIs(t, err, ErrForeignObject)

	_, err = se.Handle(ctx, newStorageEvent(t, "google.cloud.storage.object.v1.deleted",
		ObjectFinalized{Bucket: "documents", Name: key}))
	require.ErrorIs(t, err, ErrUnsupportedEvent)

	_, err = se.Handle(ctx, newStorageEvent(t, "com.docpay.storage.object.finalized",
		ObjectFinalized{Bucket: "documents", Name: "avatars/u1.png"}))
	require.ErrorIs(t, err, ErrForeignObject)
}

func TestDocumentIDFromKey(t *testing.T) {
	require.Equal(t, "d1", documentIDFromKey("documents/u1/d1/a.pdf"))
	require.Equal(t, "", documentIDFromKey("documents/u1/a.pdf"))
	require.Equal(t, "", documentIDFromKey("other/u1/d1/a.pdf"))
}
