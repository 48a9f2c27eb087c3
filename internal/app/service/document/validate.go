package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const MimePDF = "application/pdf"

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file is too large")
	ErrNotPDF       = errors.New("file is not a pdf")
)

// ValidateUpload checks size bounds and sniffs the content type from the bytes themselves.
func ValidateUpload(data []byte, maxSize int64) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, len(data), maxSize)
	}
	if mt := mimetype.Detect(data); !mt.Is(MimePDF) {
		return fmt.Errorf("%w: detected %s", ErrNotPDF, mt.String())
	}
	return nil
}

// SanitizeFilename keeps the base name and replaces anything outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "document"
	}
	if !strings.HasSuffix(strings.ToLower(out), ".pdf") {
		out += ".pdf"
	}
	return out
}
