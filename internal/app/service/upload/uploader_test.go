package upload

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/internal/platform/objectstore/objectstoretest"
)

func newTestUploader(store *objectstoretest.MemStore) (*Uploader, *[]time.Duration) {
	u := New(store, 3, time.Second, zap.NewNop().Sugar())
	var waits []time.Duration
	u.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return u, &waits
}

var errSlowDown = minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "documents/u1/d1/contract.pdf", ObjectKey("u1", "d1", "contract.pdf"))
	require.Equal(t, "documents/u1/d1/passwd", ObjectKey("u1", "d1", "../../etc/passwd"))
}

func TestUpload_RetriesTransientWithLinearBackoff(t *testing.T) {
	store := objectstoretest.New()
	store.PutErrs = []error{errSlowDown, errSlowDown}
	u, waits := newTestUploader(store)

	res, err := u.Upload(context.Background(), PathRecovery, "documents/u1/d1/a.pdf", []byte("%PDF"))
	require.NoError(t, err)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	require.True(t, store.Has("documents/u1/d1/a.pdf"))
}

func TestUpload_GivesUpAfterMaxAttempts(t *testing.T) {
	store := objectstoretest.New()
	store.PutErrs = []error{errSlowDown, errSlowDown, errSlowDown, nil}
	u, _ := newTestUploader(store)

	res, err := u.Upload(context.Background(), PathArrival, "k", []byte("%PDF"))
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, 3, store.PutCount())
}

func TestNew_CapsAttempts(t *testing.T) {
	store := objectstoretest.New()
	store.PutErrs = []error{errSlowDown, errSlowDown, errSlowDown, errSlowDown, nil}
	u := New(store, 10, 0, zap.NewNop().Sugar())

	_, err := u.Upload(context.Background(), PathRecovery, "k", []byte("%PDF"))
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Equal(t, 3, store.PutCount())

	require.Equal(t, 1, New(store, 0, 0, zap.NewNop().Sugar()).maxAttempts)
}

func TestUpload_TerminalErrorStopsImmediately(t *testing.T) {
	store := objectstoretest.New()
	store.PutErrs = []error{minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}}
	u, waits := newTestUploader(store)

	_, err := u.Upload(context.Background(), PathRecovery, "k", []byte("%PDF"))
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Equal(t, 1, store.PutCount())
	require.Empty(t, *waits)
}

func TestUpload_ReusesExistingObject(t *testing.T) {
	store := objectstoretest.New()
	store.Objects["k"] = []byte("%PDF")
	u, _ := newTestUploader(store)

	res, err := u.Upload(context.Background(), PathRecovery, "k", []byte("%PDF-new"))
	require.NoError(t, err)
	require.True(t, res.Reused)
	require.Equal(t, 0, store.PutCount())
}

func TestUpload_ContextCancelledDuringBackoff(t *testing.T) {
	store := objectstoretest.New()
	store.PutErrs = []error{errSlowDown}
	u, _ := newTestUploader(store)
	u.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := u.Upload(context.Background(), PathRecovery, "k", []byte("%PDF"))
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Equal(t, 1, store.PutCount())
}
