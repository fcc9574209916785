// Package pdf reads the document information dictionary of PDF files and
// guesses their language from the first page's text layer.
package pdf

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

func init() {
	// pdfcpu would otherwise create a config dir under the user's home.
	api.DisableConfigDir()
}

type Reader struct {
	normalizer  *languages.Normalizer
	extractor   TextExtractor
	minChars    int
	sampleChars int
}

// NewReader builds a Reader from the config. Text extraction uses the pdfium
// webassembly runtime unless it's disabled in the config.
func NewReader(cfg *config.Config, normalizer *languages.Normalizer) *Reader {
	r := &Reader{
		normalizer:  normalizer,
		minChars:    cfg.LanguageMinChars,
		sampleChars: cfg.LanguageSampleChars,
	}
	if cfg.PDFTextExtraction {
		r.extractor = NewPdfiumExtractor(cfg.ImportUnitTimeout)
	}
	return r
}

// WithExtractor returns a copy of r that pulls page text from e.
func (r *Reader) WithExtractor(e TextExtractor) *Reader {
	cp := *r
	cp.extractor = e
	return &cp
}

// Close releases the text extractor's runtime, if it holds one.
func (r *Reader) Close() error {
	if c, ok := r.extractor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Read returns the title, author and subject from the information dictionary
// and the language from the catalog's /Lang entry (or the non-standard
// /Language info entry). PDFs carry no description.
func (r *Reader) Read(path string) (candidate mediafile.Candidate, err error) {
	candidate = mediafile.Candidate{Source: models.DataSourcePDFMetadata}

	defer func() {
		if rec := recover(); rec != nil {
			candidate = mediafile.Candidate{Source: models.DataSourcePDFMetadata}
			err = errors.Errorf("pdf parser panicked: %v", rec)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return candidate, errors.WithStack(err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, model.NewDefaultConfiguration())
	if err != nil {
		return candidate, errors.Wrap(err, "failed to read pdf")
	}

	var info types.Dict
	if ctx.Info != nil {
		info, err = ctx.DereferenceDict(*ctx.Info)
		if err != nil {
			return candidate, errors.Wrap(err, "failed to read pdf info dictionary")
		}
	}

	if v, ok := stringEntry(ctx, info, "Title"); ok {
		candidate.Title = &v
	}
	if v, ok := stringEntry(ctx, info, "Author"); ok {
		candidate.Author = &v
	}
	if v, ok := stringEntry(ctx, info, "Subject"); ok {
		candidate.Subject = &v
	}

	lang, ok := "", false
	if catalog, err := ctx.Catalog(); err == nil {
		lang, ok = stringEntry(ctx, catalog, "Lang")
	}
	if !ok {
		lang, ok = stringEntry(ctx, info, "Language")
	}
	if ok && r.normalizer != nil {
		if code, supported := r.normalizer.Normalize(lang); supported {
			candidate.Language = &code
		}
	}

	return candidate, nil
}

func stringEntry(ctx *model.Context, d types.Dict, key string) (string, bool) {
	if d == nil {
		return "", false
	}
	obj, found := d.Find(key)
	if !found || obj == nil {
		return "", false
	}
	obj, err := ctx.Dereference(obj)
	if err != nil || obj == nil {
		return "", false
	}

	var s string
	switch o := obj.(type) {
	case types.StringLiteral:
		s, err = types.StringLiteralToString(o)
	case types.HexLiteral:
		s, err = types.HexLiteralToString(o)
	case types.Name:
		s = string(o)
	default:
		return "", false
	}
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")), true
}

// Source is the embedded-metadata variant of mediafile.Source for PDFs.
type Source struct {
	Path   string
	Reader *Reader
}

func (s Source) Extract(ctx context.Context) mediafile.Candidate {
	c, err := s.Reader.Read(s.Path)
	if err != nil {
		logger.FromContext(ctx).Info("pdf metadata unreadable", logger.Data{"path": s.Path, "error": err.Error()})
		metrics.IncSoftFailure(models.DataSourcePDFMetadata)
	}
	return c
}
