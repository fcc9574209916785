// Package epub extracts descriptive metadata and cover images from EPUB
// containers.
package epub

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/htmlutil"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

type textElement struct {
	Text  string `xml:",chardata"`
	Inner string `xml:",innerxml"`
	ID    string `xml:"id,attr"`
	Role  string `xml:"role,attr"`
}

type Package struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title       []textElement `xml:"title"`
		Creator     []textElement `xml:"creator"`
		Description []textElement `xml:"description"`
		Language    []textElement `xml:"language"`
		Subject     []textElement `xml:"subject"`
		Meta        []struct {
			Text     string `xml:",chardata"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []ManifestItem `xml:"item"`
	} `xml:"manifest"`
	Guide struct {
		Reference []struct {
			Type string `xml:"type,attr"`
			Href string `xml:"href,attr"`
		} `xml:"reference"`
	} `xml:"guide"`
}

type ManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// Source is the embedded-metadata variant of mediafile.Source for EPUBs.
type Source struct {
	Path       string
	Normalizer *languages.Normalizer
}

func (s Source) Extract(ctx context.Context) mediafile.Candidate {
	c, err := Read(s.Path, s.Normalizer)
	if err != nil {
		logger.FromContext(ctx).Info("epub metadata unreadable", logger.Data{"path": s.Path, "error": err.Error()})
		metrics.IncSoftFailure(models.DataSourceEPUBMetadata)
	}
	return c
}

// Read extracts the first title, creator, description, language and subject
// from the EPUB's package document. When the container can't be opened the
// returned candidate is absent and the error says why.
func Read(path string, normalizer *languages.Normalizer) (mediafile.Candidate, error) {
	candidate := mediafile.Candidate{Source: models.DataSourceEPUBMetadata}

	b, err := open(path)
	if err != nil {
		return candidate, err
	}
	defer b.Close()

	md := b.pkg.Metadata
	if len(md.Title) > 0 {
		v := strings.TrimSpace(md.Title[0].Text)
		candidate.Title = &v
	}
	if len(md.Creator) > 0 {
		v := strings.TrimSpace(md.Creator[0].Text)
		candidate.Author = &v
	}
	if len(md.Description) > 0 {
		v := descriptionText(md.Description[0])
		candidate.Description = &v
	}
	if len(md.Subject) > 0 {
		v := strings.TrimSpace(md.Subject[0].Text)
		candidate.Subject = &v
	}
	if len(md.Language) > 0 && normalizer != nil {
		if code, ok := normalizer.Normalize(md.Language[0].Text); ok {
			candidate.Language = &code
		}
	}

	return candidate, nil
}

func descriptionText(el textElement) string {
	inner := strings.TrimSpace(el.Inner)
	if strings.Contains(inner, "<") && !strings.HasPrefix(inner, "<![CDATA[") {
		return htmlutil.StripTags(inner)
	}
	return htmlutil.StripTags(el.Text)
}
