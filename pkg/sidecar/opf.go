// Package sidecar reads OPF descriptors shipped next to a book file.
package sidecar

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/htmlutil"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const (
	NamespaceDCElements = "http://purl.org/dc/elements/1.1/"
	NamespaceDCTerms    = "http://purl.org/dc/terms/"

	maxSidecarBytes = 4 << 20
)

var elementFields = map[string]string{
	"title":       mediafile.FieldTitle,
	"creator":     mediafile.FieldAuthor,
	"description": mediafile.FieldDescription,
	"language":    mediafile.FieldLanguage,
	"subject":     mediafile.FieldSubject,
}

// Source is the sidecar variant of mediafile.Source.
type Source struct {
	Path       string
	Normalizer *languages.Normalizer
}

func (s Source) Extract(ctx context.Context) mediafile.Candidate {
	return Read(ctx, s.Path, s.Normalizer)
}

// Read parses the OPF at path. It never fails: a missing file, malformed XML
// or a document without Dublin Core elements all produce an absent
// candidate.
func Read(ctx context.Context, path string, normalizer *languages.Normalizer) mediafile.Candidate {
	candidate := mediafile.Candidate{Source: models.DataSourceOPFSidecar}
	if path == "" {
		return candidate
	}

	f, err := os.Open(path)
	if err != nil {
		logger.FromContext(ctx).Debug("sidecar not readable", logger.Data{"path": path, "error": err.Error()})
		metrics.IncSoftFailure(models.DataSourceOPFSidecar)
		return candidate
	}
	defer f.Close()

	fields, err := Parse(io.LimitReader(f, maxSidecarBytes))
	if err != nil {
		logger.FromContext(ctx).Debug("sidecar not parseable", logger.Data{"path": path, "error": err.Error()})
		metrics.IncSoftFailure(models.DataSourceOPFSidecar)
		return candidate
	}

	return toCandidate(fields, normalizer, models.DataSourceOPFSidecar)
}

// Parse returns the first value of each recognized Dublin Core element,
// keyed by mediafile field name. Elements are looked up in the DC elements
// namespace first and then in the DC terms namespace.
func Parse(r io.Reader) (map[string]string, error) {
	primary := map[string]string{}
	secondary := map[string]string{}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		field, ok := elementFields[start.Name.Local]
		if !ok {
			continue
		}

		var target map[string]string
		switch start.Name.Space {
		case NamespaceDCElements:
			target = primary
		case NamespaceDCTerms:
			target = secondary
		default:
			continue
		}

		var el element
		if err := dec.DecodeElement(&el, &start); err != nil {
			return nil, errors.WithStack(err)
		}
		if _, seen := target[field]; seen {
			continue
		}
		target[field] = el.value(field)
	}

	for field, value := range secondary {
		if _, ok := primary[field]; !ok {
			primary[field] = value
		}
	}
	return primary, nil
}

type element struct {
	Text  string `xml:",chardata"`
	Inner string `xml:",innerxml"`
}

func (el element) value(field string) string {
	if field != mediafile.FieldDescription {
		return strings.TrimSpace(el.Text)
	}
	inner := strings.TrimSpace(el.Inner)
	if strings.Contains(inner, "<") && !strings.HasPrefix(inner, "<![CDATA[") {
		// Markup nested directly inside the element.
		return htmlutil.StripTags(inner)
	}
	// Escaped or CDATA-wrapped HTML arrives decoded in the character data.
	return htmlutil.StripTags(el.Text)
}

func toCandidate(fields map[string]string, normalizer *languages.Normalizer, source string) mediafile.Candidate {
	c := mediafile.Candidate{Source: source}
	if v, ok := fields[mediafile.FieldTitle]; ok {
		c.Title = &v
	}
	if v, ok := fields[mediafile.FieldAuthor]; ok {
		c.Author = &v
	}
	if v, ok := fields[mediafile.FieldDescription]; ok {
		c.Description = &v
	}
	if v, ok := fields[mediafile.FieldSubject]; ok {
		c.Subject = &v
	}
	if v, ok := fields[mediafile.FieldLanguage]; ok && normalizer != nil {
		if code, ok := normalizer.Normalize(v); ok {
			c.Language = &code
		}
	}
	return c
}
