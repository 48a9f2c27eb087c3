// Package file_arrival moves a paid document's staged submission into object storage.
//
// Payment and file storage are independent facts: a failure here never touches the
// payment, it flags the document for the recovery flow instead.
package file_arrival

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/delivery"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/upload"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/types"
)

type Outcome string

const (
	OutcomeStored        Outcome = "stored"
	OutcomeAlreadyStored Outcome = "already_stored"
	OutcomeUploadFailed  Outcome = "upload_failed"
	OutcomeSkipped       Outcome = "skipped"
)

type Service struct {
	docs     *document.Service
	uploader *upload.Uploader
	sender   delivery.Sender
	audit    *actionlog.Service
	log      *zap.SugaredLogger
}

func New(docs *document.Service, uploader *upload.Uploader, sender delivery.Sender, audit *actionlog.Service, log *zap.SugaredLogger) *Service {
	return &Service{docs: docs, uploader: uploader, sender: sender, audit: audit, log: log}
}

// Deliver uploads the staged file of a paid document and forwards it downstream.
// It is safe to call more than once for the same document.
func (s *Service) Deliver(ctx context.Context, documentID string) (Outcome, error) {
	ctx = logctx.WithActor(ctx, types.ActorArrival)
	lg := logctx.FromCtx(ctx, s.log).With("document_id", documentID)

	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return OutcomeSkipped, err
	}
	if doc.FileURL != nil {
		lg.Infow("file_arrival_already_stored")
		return OutcomeAlreadyStored, nil
	}
	if doc.Status != models.DocumentStatusPending && doc.Status != models.DocumentStatusProcessing {
		lg.Infow("file_arrival_skipped", "status", doc.Status)
		return OutcomeSkipped, nil
	}

	data, err := s.docs.ReadStaged(doc)
	if err != nil {
		return s.failed(ctx, doc, err)
	}
	res, err := s.uploader.Upload(ctx, upload.PathArrival, upload.ObjectKey(doc.UserID, doc.ID, doc.Filename), data)
	if err != nil {
		return s.failed(ctx, doc, err)
	}

	moved, err := s.docs.MarkFileStored(ctx, doc.ID, res.Key)
	if err != nil {
		return OutcomeSkipped, err
	}
	if !moved {
		lg.Infow("file_arrival_state_moved_concurrently")
		return OutcomeAlreadyStored, nil
	}
	s.audit.Warn(ctx, &actionlog.Entry{
		Action:     actionlog.ActionFileStored,
		EntityType: actionlog.EntityDocument,
		EntityID:   doc.ID,
		Metadata:   map[string]any{"key": res.Key, "attempts": res.Attempts, "reused": res.Reused},
	})
	s.docs.RemoveStaged(ctx, doc)

	stored, err := s.docs.Get(ctx, doc.ID)
	if err != nil {
		return OutcomeStored, err
	}
	if _, err := s.sender.Notify(ctx, &delivery.DeliveryRequest{
		Document: stored,
		FileRef:  res.Key,
		Size:     int64(len(data)),
		Source:   delivery.SourceArrival,
	}); err != nil {
		lg.Errorw("file_arrival_notify_failed", "err", err)
	}
	lg.Infow("file_arrival_stored", "key", res.Key)
	return OutcomeStored, nil
}

func (s *Service) failed(ctx context.Context, doc *models.Document, cause error) (Outcome, error) {
	lg := logctx.FromCtx(ctx, s.log).With("document_id", doc.ID)
	flagged, err := s.docs.MarkUploadFailed(ctx, doc.ID)
	if err != nil {
		return OutcomeUploadFailed, fmt.Errorf("failed to flag upload failure: %w", err)
	}
	if flagged {
		s.audit.Warn(ctx, &actionlog.Entry{
			Action:     actionlog.ActionUploadFailed,
			EntityType: actionlog.EntityDocument,
			EntityID:   doc.ID,
			Metadata:   map[string]any{"error": cause.Error()},
		})
	}
	lg.Warnw("file_arrival_upload_failed", "err", cause, "flagged", flagged)
	return OutcomeUploadFailed, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
