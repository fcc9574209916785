package mediafile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldDescription = "description"
	FieldLanguage    = "language"
	FieldSubject     = "subject"
)

// Candidate is the metadata one source extracted for a book. A nil field is
// absent (the source had nothing to say), a pointer to "" is present but
// empty. Candidates are values and are never modified after extraction.
type Candidate struct {
	Title       *string
	Author      *string
	Description *string
	Language    *string
	Subject     *string
	// Source is the models.DataSource* value that produced the candidate.
	Source string
	// FieldSources overrides Source for individual fields, e.g. a PDF
	// language that came from text detection rather than the info dict.
	FieldSources map[string]string
}

// Source is implemented once per container/descriptor format. Extract never
// fails: anything the format can't provide is absent in the result.
type Source interface {
	Extract(ctx context.Context) Candidate
}

// IsAbsent reports whether no field at all was extracted.
func (c Candidate) IsAbsent() bool {
	return c.Title == nil && c.Author == nil && c.Description == nil && c.Language == nil && c.Subject == nil
}

// Value returns the field's value and whether it is present and non-empty.
func (c Candidate) Value(field string) (string, bool) {
	var p *string
	switch field {
	case FieldTitle:
		p = c.Title
	case FieldAuthor:
		p = c.Author
	case FieldDescription:
		p = c.Description
	case FieldLanguage:
		p = c.Language
	case FieldSubject:
		p = c.Subject
	}
	if p == nil || strings.TrimSpace(*p) == "" {
		return "", false
	}
	return strings.TrimSpace(*p), true
}

// SourceForField returns the data source for a specific field. If a per-field
// source is set it wins, otherwise Source is used.
func (c Candidate) SourceForField(field string) string {
	if src, ok := c.FieldSources[field]; ok {
		return src
	}
	return c.Source
}

func (c Candidate) String() string {
	show := func(p *string) string {
		if p == nil {
			return "<absent>"
		}
		return fmt.Sprintf("%q", *p)
	}
	return fmt.Sprintf("Title:       %s\nAuthor:      %s\nDescription: %s\nLanguage:    %s\nSubject:     %s\nData Source: %s",
		show(c.Title), show(c.Author), show(c.Description), show(c.Language), show(c.Subject), c.Source)
}

// DetectContainerType sniffs the file's content to decide between PDF and
// EPUB. A zip is only accepted as an EPUB when the extension says so (an EPUB
// whose mimetype entry isn't first sniffs as a plain zip). Content that
// matches neither returns "".
func DetectContainerType(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	switch {
	case mtype.Is("application/pdf"):
		return models.ContainerTypePDF, nil
	case mtype.Is("application/epub+zip"):
		return models.ContainerTypeEPUB, nil
	case mtype.Is("application/zip"):
		if strings.EqualFold(filepath.Ext(path), ".epub") {
			return models.ContainerTypeEPUB, nil
		}
	}
	return "", nil
}

// ContainerTypeFromExtension maps a path's extension to a container type, or
// "" when it isn't a recognized book extension.
func ContainerTypeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return models.ContainerTypePDF
	case ".epub":
		return models.ContainerTypeEPUB
	}
	return ""
}

// ImageExtension returns the file extension for an image MIME type.
func ImageExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}
