package pdf

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/pkg/errors"
)

// TextExtractor returns the text layer of a PDF's first page.
type TextExtractor interface {
	FirstPageText(ctx context.Context, path string) (string, error)
}

// PdfiumExtractor renders text through a single pdfium webassembly instance.
// The runtime is started on first use.
type PdfiumExtractor struct {
	timeout time.Duration

	once    sync.Once
	pool    pdfium.Pool
	initErr error
	mu      sync.Mutex
}

func NewPdfiumExtractor(timeout time.Duration) *PdfiumExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PdfiumExtractor{timeout: timeout}
}

func (e *PdfiumExtractor) init() error {
	e.once.Do(func() {
		e.pool, e.initErr = webassembly.Init(webassembly.Config{
			MinIdle:  1,
			MaxIdle:  1,
			MaxTotal: 1,
		})
		if e.initErr != nil {
			e.initErr = errors.Wrap(e.initErr, "failed to start pdfium")
		}
	})
	return e.initErr
}

func (e *PdfiumExtractor) FirstPageText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}
	if err := e.init(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}

	// The pool holds one instance.
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, err := e.pool.GetInstance(e.timeout)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer func() {
		_, _ = instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
	}()

	page, err := instance.GetPageText(&requests.GetPageText{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{Document: doc.Document, Index: 0},
		},
	})
	if err != nil {
		return "", errors.WithStack(err)
	}
	return page.Text, nil
}

// Close shuts the pdfium runtime down if it was started.
func (e *PdfiumExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pool == nil {
		return nil
	}
	return errors.WithStack(e.pool.Close())
}
