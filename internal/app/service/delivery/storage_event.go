package delivery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/types"
)

var (
	ErrUnsupportedEvent = errors.New("unsupported storage event")
	ErrForeignObject    = errors.New("object is not a document upload")
)

// ObjectFinalizedTypes are the CloudEvent types announcing a new object.
var ObjectFinalizedTypes = map[string]bool{
	"google.cloud.storage.object.v1.finalized": true,
	"com.docpay.storage.object.finalized":      true,
}

// ObjectFinalized is the storage object payload. Size arrives as a decimal string.
type ObjectFinalized struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	Size        string            `json:"size"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

// StorageEvents forwards objects landing in the document bucket to the notifier. It is
// the second trigger of a delivery besides the upload paths; both go through the same dedup.
type StorageEvents struct {
	bucket string
	docs   *document.Service
	sender Sender
	log    *zap.SugaredLogger
}

func NewStorageEvents(cfg *config.Config, docs *document.Service, n *Notifier, log *zap.SugaredLogger) *StorageEvents {
	return &StorageEvents{bucket: cfg.Storage.Bucket, docs: docs, sender: n, log: log}
}

func (s *StorageEvents) Handle(ctx context.Context, e cloudevents.Event) (*DeliveryResult, error) {
	if !ObjectFinalizedTypes[e.Type()] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, e.Type())
	}
	var obj ObjectFinalized
	if err := e.DataAs(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode storage event %s: %w", e.ID(), err)
	}
	lg := logctx.FromCtx(ctx, s.log).With("event_id", e.ID(), "bucket", obj.Bucket, "object", obj.Name)

	if s.bucket != "" && obj.Bucket != s.bucket {
		return nil, fmt.Errorf("%w: bucket %s", ErrForeignObject, obj.Bucket)
	}
	docID := obj.Metadata["document_id"]
	if docID == "" {
		docID = documentIDFromKey(obj.Name)
	}
	if docID == "" {
		return nil, fmt.Errorf("%w: %s", ErrForeignObject, obj.Name)
	}

	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanHoldFile(doc.Status) {
		lg.Infow("storage_event_ignored", "document_id", doc.ID, "status", doc.Status)
		return &DeliveryResult{Message: fmt.Sprintf("document is %s", doc.Status)}, nil
	}
	size, _ := strconv.ParseInt(obj.Size, 10, 64)

	ctx = logctx.WithActor(ctx, types.ActorNotifier)
	res, err := s.sender.Notify(ctx, &DeliveryRequest{
		Document: doc,
		FileRef:  obj.Name,
		Size:     size,
		Source:   SourceStorageEvent,
	})
	if err != nil {
		return nil, err
	}
	lg.Infow("storage_event_forwarded", "document_id", doc.ID, "sent", res.Sent, "already_processed", res.AlreadyProcessed)
	return res, nil
}

// documentIDFromKey reads documents/<user>/<document>/<file>.
func documentIDFromKey(key string) string {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	if len(parts) != 4 || parts[0] != "documents" {
		return ""
	}
	return parts[2]
}
