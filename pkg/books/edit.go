package books

import (
	"strings"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/models"
)

// EditOverride holds user-entered values. Nil fields are left alone.
type EditOverride struct {
	Title       *string
	Author      *string
	Description *string
	Language    *string
	Category    *string
}

// ApplyEdit validates the override and then applies it to book. A changed
// field takes the manual source, except that a blanked author, language or
// category falls back to its default and takes the default source. A blank
// title is rejected. It returns the changed columns; when validation fails
// the book is not modified.
func ApplyEdit(book *models.Book, edit EditOverride, normalizer *languages.Normalizer, d Defaults) ([]string, error) {
	type change struct {
		value, source string
	}
	var title, author, description, lang, category change

	if edit.Title != nil {
		title = change{strings.TrimSpace(*edit.Title), models.DataSourceManual}
		if title.value == "" {
			return nil, errcodes.ValidationError("Title cannot be empty.")
		}
	}
	if edit.Author != nil {
		author = change{strings.TrimSpace(*edit.Author), models.DataSourceManual}
		if author.value == "" {
			author = change{d.Author, models.DataSourceDefault}
		}
	}
	if edit.Description != nil {
		description = change{strings.TrimSpace(*edit.Description), models.DataSourceManual}
	}
	if edit.Language != nil {
		lang = change{d.Language, models.DataSourceDefault}
		if raw := strings.TrimSpace(*edit.Language); raw != "" {
			code, ok := normalizer.Normalize(raw)
			if !ok {
				return nil, errcodes.ValidationError("Language " + raw + " is not supported.")
			}
			lang = change{code, models.DataSourceManual}
		}
	}
	if edit.Category != nil {
		category = change{strings.Join(strings.Fields(*edit.Category), " "), models.DataSourceManual}
		if category.value == "" {
			category = change{d.Category, models.DataSourceDefault}
		}
	}

	columns := []string{}
	set := func(field, source *string, c change, column string) {
		if *field == c.value && *source == c.source {
			return
		}
		*field = c.value
		*source = c.source
		columns = append(columns, column, column+"_source")
	}

	if edit.Title != nil {
		set(&book.Title, &book.TitleSource, title, "title")
	}
	if edit.Author != nil {
		set(&book.Author, &book.AuthorSource, author, "author")
	}
	if edit.Description != nil {
		set(&book.Description, &book.DescriptionSource, description, "description")
	}
	if edit.Language != nil {
		set(&book.Language, &book.LanguageSource, lang, "language")
		book.LanguageName = languages.DisplayName(book.Language)
	}
	if edit.Category != nil {
		set(&book.Category, &book.CategorySource, category, "category")
	}

	return columns, nil
}
