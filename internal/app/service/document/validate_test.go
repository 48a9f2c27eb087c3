package document

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/docpay/internal/platform/pdfpages/pdftest"
)

func TestValidateUpload(t *testing.T) {
	require.NoError(t, ValidateUpload(pdftest.Build(1), 10<<20))
	require.ErrorIs(t, ValidateUpload(nil, 10<<20), ErrEmptyFile)
	require.ErrorIs(t, ValidateUpload([]byte("PK\x03\x04 not a pdf"), 10<<20), ErrNotPDF)

	big := append(pdftest.Build(1), bytes.Repeat([]byte{' '}, 64)...)
	require.ErrorIs(t, ValidateUpload(big, 32), ErrFileTooLarge)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"contract.pdf":         "contract.pdf",
		"../../etc/passwd":     "passwd.pdf",
		`C:\Users\me\scan.PDF`: "scan.PDF",
		"résumé 2024.pdf":      "r_sum__2024.pdf",
		"":                     "document.pdf",
	}
	for in, want := range cases {
		require.Equal(t, want, SanitizeFilename(in), in)
	}
}
