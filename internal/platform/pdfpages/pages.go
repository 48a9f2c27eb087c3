// Package pdfpages counts the pages of submitted documents.
package pdfpages

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnreadable = errors.New("unreadable pdf")

func init() {
	// keep pdfcpu from writing a config dir under the service user's home
	api.DisableConfigDir()
}

// Counter returns the number of pages in a PDF held in memory.
type Counter interface {
	Count(data []byte) (int, error)
}

// PDFCounter parses with pdfcpu in relaxed mode and falls back to the more
// tolerant ledongthuc/pdf reader for files pdfcpu refuses.
type PDFCounter struct {
	log *zap.SugaredLogger
}

func NewCounter(log *zap.SugaredLogger) Counter {
	return &PDFCounter{log: log}
}

func (c *PDFCounter) Count(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrUnreadable)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err == nil && n > 0 {
		return n, nil
	}
	if c.log != nil {
		c.log.Debugw("pdfcpu_page_count_failed", "error", err)
	}

	r, ferr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if ferr != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreadable, ferr)
	}
	n = r.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("%w: no pages", ErrUnreadable)
	}
	return n, nil
}

var Module = fx.Options(
	fx.Provide(NewCounter),
)
