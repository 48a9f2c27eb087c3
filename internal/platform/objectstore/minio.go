package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/pkg/config"
)

// Store is the object storage surface used by the upload, delivery and sweeper paths.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Exists reports whether key is present. A missing key is not an error.
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// SignedURL mints a time-bounded GET URL for key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
	log    *zap.SugaredLogger
}

func NewMinioStore(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) (Store, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	s := &minioStore{client: client, bucket: cfg.Storage.Bucket, log: log}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			exists, err := client.BucketExists(ctx, s.bucket)
			if err != nil {
				// storage outages must not block webhook intake; uploads fall into recovery
				log.Warnw("object_store_bucket_check_failed", "bucket", s.bucket, "error", err)
				return nil
			}
			if !exists {
				if err := client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
					return fmt.Errorf("failed to create bucket: %w", err)
				}
				log.Infow("object_store_bucket_created", "bucket", s.bucket)
			}
			return nil
		},
	})
	return s, nil
}

func (s *minioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *minioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

func (s *minioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *minioStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return u.String(), nil
}

// IsResolvedURL reports whether ref is already a fetchable URL rather than an object key.
func IsResolvedURL(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// IsTransient classifies an upload error: timeouts, network faults and
// server-side throttling are worth retrying; auth, missing bucket and bad
// request errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	switch resp.Code {
	case "RequestTimeout", "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeTooSkewed":
		return true
	case "AccessDenied", "NoSuchBucket", "InvalidAccessKeyId", "SignatureDoesNotMatch", "EntityTooLarge":
		return false
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

var Module = fx.Options(
	fx.Provide(NewMinioStore),
)
