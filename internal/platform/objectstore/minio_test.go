package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("put: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "net op error", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: true},
		{name: "slow down", err: minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}, want: true},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, want: false},
		{name: "unknown 502", err: minio.ErrorResponse{Code: "BadGateway", StatusCode: http.StatusBadGateway}, want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsResolvedURL(t *testing.T) {
	require.True(t, IsResolvedURL("https://cdn.example.com/a.pdf"))
	require.False(t, IsResolvedURL("documents/u1/d1/a.pdf"))
}
