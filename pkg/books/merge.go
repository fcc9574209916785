package books

import (
	"strings"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/fileutils"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const untitled = "Untitled"

// Defaults are the values used for fields no source provided.
type Defaults struct {
	Author   string
	Language string
	Category string
}

func DefaultsFromConfig(cfg *config.Config) Defaults {
	return Defaults{
		Author:   cfg.DefaultAuthor,
		Language: cfg.DefaultLanguage,
		Category: cfg.DefaultCategory,
	}
}

// Merge resolves the sidecar and embedded candidates into a catalog record.
// For every field independently the sidecar's non-empty value wins, then the
// embedded one, then the default. Only descriptive fields are set on the
// returned book.
func Merge(sidecar, embedded mediafile.Candidate, fallbackTitle string, d Defaults) *models.Book {
	book := &models.Book{}

	book.Title, book.TitleSource = pick(mediafile.FieldTitle, sidecar, embedded)
	if book.Title == "" {
		book.Title, book.TitleSource = fallbackTitle, models.DataSourceFilepath
		if strings.TrimSpace(book.Title) == "" {
			book.Title, book.TitleSource = untitled, models.DataSourceDefault
		}
	}

	book.Author, book.AuthorSource = pick(mediafile.FieldAuthor, sidecar, embedded)
	if book.Author == "" {
		book.Author, book.AuthorSource = d.Author, models.DataSourceDefault
	}

	book.Description, book.DescriptionSource = pick(mediafile.FieldDescription, sidecar, embedded)
	if book.Description == "" {
		book.DescriptionSource = models.DataSourceDefault
	}

	book.Language, book.LanguageSource = pick(mediafile.FieldLanguage, sidecar, embedded)
	if book.Language == "" {
		book.Language, book.LanguageSource = d.Language, models.DataSourceDefault
	}

	subject, source := pick(mediafile.FieldSubject, sidecar, embedded)
	if subject == "" {
		book.Category, book.CategorySource = d.Category, models.DataSourceDefault
	} else {
		book.Category, book.CategorySource = CategoryFromSubject(subject), source
	}

	return book
}

func pick(field string, candidates ...mediafile.Candidate) (string, string) {
	for _, c := range candidates {
		if v, ok := c.Value(field); ok {
			return v, c.SourceForField(field)
		}
	}
	return "", ""
}

// TitleFromFilename derives a title from a book's filename: the extension is
// dropped and underscores and hyphens become spaces.
func TitleFromFilename(name string) string {
	base := fileutils.BaseNameWithoutExt(name)
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// CategoryFromSubject title-cases a subject for use as a category.
func CategoryFromSubject(subject string) string {
	subject = strings.Join(strings.Fields(subject), " ")
	return cases.Title(language.Und).String(subject)
}
