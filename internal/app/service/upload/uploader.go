package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/internal/platform/objectstore"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/metrics"
)

const contentTypePDF = "application/pdf"

var ErrUploadFailed = errors.New("upload failed")

// Path labels the caller in logs and metrics.
type Path string

const (
	PathArrival  Path = "arrival"
	PathRecovery Path = "recovery"
)

// ObjectKey is the bucket key a document's file is stored under.
func ObjectKey(userID, documentID, filename string) string {
	return path.Join("documents", userID, documentID, path.Base(filename))
}

type Result struct {
	Key      string
	Attempts int
	// Reused is set when the object was already present and no write happened.
	Reused bool
}

type Uploader struct {
	store       objectstore.Store
	maxAttempts int
	backoff     time.Duration
	log         *zap.SugaredLogger
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewUploader(store objectstore.Store, cfg *config.Config, log *zap.SugaredLogger) *Uploader {
	return New(store, cfg.Recovery.MaxAttempts, cfg.Recovery.Backoff, log)
}

// New returns an uploader making between 1 and config.MaxRecoveryAttempts attempts per object.
func New(store objectstore.Store, maxAttempts int, backoff time.Duration, log *zap.SugaredLogger) *Uploader {
	maxAttempts = max(1, min(maxAttempts, config.MaxRecoveryAttempts))
	return &Uploader{store: store, maxAttempts: maxAttempts, backoff: backoff, log: log, sleep: sleepCtx}
}

// Upload writes data under key unless the key already exists. Transient store errors are
// retried with linear backoff up to the configured attempt count; any other error stops at once.
func (u *Uploader) Upload(ctx context.Context, p Path, key string, data []byte) (*Result, error) {
	lg := logctx.FromCtx(ctx, u.log).With("path", p, "key", key)

	exists, err := u.store.Exists(ctx, key)
	if err != nil {
		lg.Warnw("upload_exists_check_failed", "err", err)
	}
	if exists {
		metrics.UploadAttempt(string(p), "reused")
		lg.Infow("upload_reused_existing_object")
		return &Result{Key: key, Reused: true}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		lastErr = u.store.Put(ctx, key, data, contentTypePDF)
		if lastErr == nil {
			metrics.UploadAttempt(string(p), "ok")
			lg.Infow("upload_succeeded", "attempt", attempt, "size", len(data))
			return &Result{Key: key, Attempts: attempt}, nil
		}
		if !objectstore.IsTransient(lastErr) {
			metrics.UploadAttempt(string(p), "terminal")
			lg.Errorw("upload_terminal_failure", "attempt", attempt, "err", lastErr)
			return &Result{Key: key, Attempts: attempt}, fmt.Errorf("%w: %v", ErrUploadFailed, lastErr)
		}
		metrics.UploadAttempt(string(p), "transient")
		lg.Warnw("upload_transient_failure", "attempt", attempt, "err", lastErr)
		if attempt < u.maxAttempts {
			if err := u.sleep(ctx, time.Duration(attempt)*u.backoff); err != nil {
				return &Result{Key: key, Attempts: attempt}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
			}
		}
	}
	return &Result{Key: key, Attempts: u.maxAttempts}, fmt.Errorf("%w after %d attempts: %v", ErrUploadFailed, u.maxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var Module = fx.Options(
	fx.Provide(NewUploader),
)
