package pdf

import (
	"context"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

// DetectLanguage guesses the book's language from the first page's text.
// Every failure (no text layer, too little text, an unsupported or unknown
// language) reports false.
func (r *Reader) DetectLanguage(ctx context.Context, path string) (string, bool) {
	if r.extractor == nil {
		return "", false
	}
	log := logger.FromContext(ctx)

	text, err := r.extractor.FirstPageText(ctx, path)
	if err != nil {
		log.Debug("pdf text extraction failed", logger.Data{"path": path, "error": err.Error()})
		metrics.IncSoftFailure(models.DataSourcePDFText)
		return "", false
	}
	code, ok := r.DetectTextLanguage(text)
	log.Debug("pdf language detection", logger.Data{"path": path, "language": code, "accepted": ok})
	return code, ok
}

// DetectTextLanguage runs detection over the leading sample of text. The
// sample must be longer than the configured minimum.
func (r *Reader) DetectTextLanguage(text string) (string, bool) {
	sample := []rune(strings.Join(strings.Fields(text), " "))
	if r.sampleChars > 0 && len(sample) > r.sampleChars {
		sample = sample[:r.sampleChars]
	}
	if len(sample) <= r.minChars {
		return "", false
	}

	info := whatlanggo.Detect(string(sample))
	iso := info.Lang.Iso6391()
	if iso == "" || r.normalizer == nil {
		return "", false
	}
	return r.normalizer.Normalize(iso)
}
