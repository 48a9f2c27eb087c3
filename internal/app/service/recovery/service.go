package recovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/delivery"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	"github.com/fatflowers/docpay/internal/app/service/upload"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/pdfpages"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/types"
)

const (
	MsgEmptyFile           = "file is empty"
	MsgNotPDF              = "only PDF files are accepted"
	MsgDocumentNotFound    = "document not found"
	MsgPaymentNotVerified  = "payment not verified"
	MsgUnreadablePDF       = "could not read the PDF file"
	MsgUploadFailed        = "upload failed, please try again"
	MsgStateChanged        = "document is no longer awaiting a file"
	MsgAlreadyStored       = "document already has a file"
	msgFileTooLargeFormat  = "file is too large, the limit is %d MB"
	msgPageMismatchFormat  = "page count mismatch: paid for %d pages, uploaded file has %d pages"
	msgInternalErrorFormat = "could not process the retry: %s"
)

var ErrInvalidFilter = errors.New("invalid filter")

type ListMissingRequest struct {
	UserID  string                `json:"user_id"`
	Filters []*types.CommonFilter `json:"filters"`
	From    int                   `json:"from"`
	Size    int                   `json:"size"`
}

type MissingFileDocument struct {
	*models.Document
	NeedsRecovery bool `json:"needs_recovery"`
}

type ListMissingResponse struct {
	Total     int64                  `json:"total"`
	Documents []*MissingFileDocument `json:"documents"`
}

type UploadFile struct {
	Filename string
	Data     []byte
}

// RetryResult is the user-presentable outcome of a resubmission.
type RetryResult struct {
	Success    bool   `json:"success"`
	FileURL    string `json:"fileUrl,omitempty"`
	Error      string `json:"error,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
}

type Service struct {
	cfg      *config.Config
	docs     *document.Service
	pages    pdfpages.Counter
	uploader *upload.Uploader
	sender   delivery.Sender
	audit    *actionlog.Service
	log      *zap.SugaredLogger
	group    singleflight.Group
}

func New(cfg *config.Config, docs *document.Service, pages pdfpages.Counter, uploader *upload.Uploader, sender delivery.Sender, audit *actionlog.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, docs: docs, pages: pages, uploader: uploader, sender: sender, audit: audit, log: log}
}

// ListMissingFileDocuments returns paid documents that have no stored file.
func (s *Service) ListMissingFileDocuments(ctx context.Context, req *ListMissingRequest) (*ListMissingResponse, error) {
	if req == nil {
		req = &ListMissingRequest{}
	}
	for _, f := range req.Filters {
		if err := f.Validate(document.FilterFields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}
	docs, total, err := s.docs.ListMissingFile(ctx, &document.MissingFileFilter{
		UserID:  req.UserID,
		Filters: types.FiltersAnd(req.Filters),
		From:    req.From,
		Size:    req.Size,
	})
	if err != nil {
		return nil, err
	}
	out := &ListMissingResponse{Total: total, Documents: make([]*MissingFileDocument, 0, len(docs))}
	for _, d := range docs {
		out.Documents = append(out.Documents, &MissingFileDocument{Document: d, NeedsRecovery: true})
	}
	return out, nil
}

// RetryUpload validates a resubmitted file against what was paid for and stores it.
// Every caller's file is checked on its own; concurrent retries carrying the same bytes
// for one document share the store step.
func (s *Service) RetryUpload(ctx context.Context, documentID string, file *UploadFile) *RetryResult {
	lg := logctx.FromCtx(ctx, s.log).With("document_id", documentID)
	reject := func(msg string) *RetryResult {
		lg.Infow("upload_retry_rejected", "reason", msg)
		return &RetryResult{Success: false, Error: msg, DocumentID: documentID}
	}

	var data []byte
	if file != nil {
		data = file.Data
	}
	if err := document.ValidateUpload(data, s.cfg.Recovery.MaxFileSize); err != nil {
		switch {
		case errors.Is(err, document.ErrEmptyFile):
			return reject(MsgEmptyFile)
		case errors.Is(err, document.ErrFileTooLarge):
			return reject(fmt.Sprintf(msgFileTooLargeFormat, s.cfg.Recovery.MaxFileSize>>20))
		default:
			return reject(MsgNotPDF)
		}
	}

	doc, err := s.docs.Get(ctx, documentID)
	if errors.Is(err, document.ErrNotFound) {
		return reject(MsgDocumentNotFound)
	}
	if err != nil {
		lg.Errorw("upload_retry_load_failed", "err", err)
		return reject(fmt.Sprintf(msgInternalErrorFormat, "please try again later"))
	}
	paid, err := s.docs.HasCompletedPayment(ctx, doc.ID)
	if err != nil {
		lg.Errorw("upload_retry_payment_check_failed", "err", err)
		return reject(fmt.Sprintf(msgInternalErrorFormat, "please try again later"))
	}
	if !paid {
		return reject(MsgPaymentNotVerified)
	}
	if doc.FileURL != nil {
		return reject(MsgAlreadyStored)
	}
	if _, err := lifecycle.Next(doc.Status, lifecycle.EventRetrySucceeded); err != nil {
		return reject(MsgStateChanged)
	}

	pages, err := s.pages.Count(data)
	if err != nil {
		return reject(MsgUnreadablePDF)
	}
	if pages != doc.Pages {
		return reject(fmt.Sprintf(msgPageMismatchFormat, doc.Pages, pages))
	}

	sum := sha256.Sum256(data)
	key := doc.ID + ":" + hex.EncodeToString(sum[:])
	// the shared step outlives any single caller's request
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do(key, func() (any, error) {
		return s.store(shared, doc, file.Filename, data, pages), nil
	})
	res := *v.(*RetryResult)
	return &res
}

// store uploads a validated file and moves the document out of the missing-file state.
func (s *Service) store(ctx context.Context, doc *models.Document, filename string, data []byte, pages int) *RetryResult {
	lg := logctx.FromCtx(ctx, s.log).With("document_id", doc.ID)
	reject := func(msg string) *RetryResult {
		lg.Infow("upload_retry_rejected", "reason", msg)
		return &RetryResult{Success: false, Error: msg, DocumentID: doc.ID}
	}

	res, err := s.uploader.Upload(ctx, upload.PathRecovery, upload.ObjectKey(doc.UserID, doc.ID, doc.Filename), data)
	if err != nil {
		lg.Warnw("upload_retry_store_failed", "err", err)
		return reject(MsgUploadFailed)
	}
	applied, err := s.docs.CompleteRetry(ctx, doc.ID, res.Key)
	if err != nil {
		lg.Errorw("upload_retry_complete_failed", "err", err)
		return reject(fmt.Sprintf(msgInternalErrorFormat, "please try again later"))
	}
	if !applied {
		return reject(MsgStateChanged)
	}

	s.audit.Warn(ctx, &actionlog.Entry{
		Actor:      logctx.Actor(ctx, doc.UserID),
		Action:     actionlog.ActionUploadRetrySucceeded,
		EntityType: actionlog.EntityDocument,
		EntityID:   doc.ID,
		Metadata:   map[string]any{"key": res.Key, "attempts": res.Attempts, "pages": pages, "filename": filename},
	})
	stored, err := s.docs.Get(ctx, doc.ID)
	if err == nil {
		if _, err := s.sender.Notify(ctx, &delivery.DeliveryRequest{
			Document:           stored,
			FileRef:            res.Key,
			Size:               int64(len(data)),
			Source:             delivery.SourceRecovery,
			OriginalDocumentID: doc.ID,
		}); err != nil {
			lg.Errorw("upload_retry_notify_failed", "err", err)
		}
	}
	lg.Infow("upload_retry_succeeded", "key", res.Key, "attempts", res.Attempts)
	return &RetryResult{Success: true, FileURL: res.Key, DocumentID: doc.ID}
}

var Module = fx.Options(
	fx.Provide(New),
)
