package gormlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortCaller(t *testing.T) {
	cases := map[string]string{
		"": "",
		"/home/ci/docpay/internal/platform/db/postgres.go:38": "internal/platform/db/postgres.go:38",
		"/src/docpay/pkg/config/config.go:12":                 "pkg/config/config.go:12",
		"/a/b/c/d.go:1":                                       "b/c/d.go:1",
		"x.go:3":                                              "x.go:3",
	}
	for in, want := range cases {
		require.Equal(t, want, shortCaller(in), in)
	}
}
