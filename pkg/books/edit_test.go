package books

import (
	"testing"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNormalizer = languages.NewNormalizer([]string{"en", "fr", "de", "zh-cn"})

func importedBook() *models.Book {
	return &models.Book{
		Title:             "Imported",
		TitleSource:       models.DataSourceOPFSidecar,
		Author:            "Someone",
		AuthorSource:      models.DataSourceEPUBMetadata,
		Description:       "",
		DescriptionSource: models.DataSourceDefault,
		Language:          "en",
		LanguageSource:    models.DataSourceDefault,
		Category:          "General",
		CategorySource:    models.DataSourceDefault,
	}
}

func TestApplyEdit(t *testing.T) {
	t.Parallel()
	book := importedBook()

	columns, err := ApplyEdit(book, EditOverride{
		Title:    pointerutil.String("  Edited Title "),
		Language: pointerutil.String("fre"),
	}, testNormalizer, testDefaults)
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "title_source", "language", "language_source"}, columns)
	assert.Equal(t, "Edited Title", book.Title)
	assert.Equal(t, models.DataSourceManual, book.TitleSource)
	assert.Equal(t, "fr", book.Language)
	assert.Equal(t, models.DataSourceManual, book.LanguageSource)
	assert.Equal(t, "French", book.LanguageName)
	// Untouched fields keep their automatic sources.
	assert.Equal(t, models.DataSourceEPUBMetadata, book.AuthorSource)
}

func TestApplyEdit_ManualValueUnchanged(t *testing.T) {
	t.Parallel()
	book := importedBook()
	book.Category = "Poetry"
	book.CategorySource = models.DataSourceManual

	columns, err := ApplyEdit(book, EditOverride{Category: pointerutil.String("Poetry")}, testNormalizer, testDefaults)
	require.NoError(t, err)
	assert.Empty(t, columns)
}

func TestApplyEdit_RejectsWithoutPartialMutation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		edit EditOverride
	}{
		{"empty title", EditOverride{Author: pointerutil.String("New Author"), Title: pointerutil.String("   ")}},
		{"unsupported language", EditOverride{Title: pointerutil.String("New"), Language: pointerutil.String("tlh")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			book := importedBook()
			before := *book

			columns, err := ApplyEdit(book, tt.edit, testNormalizer, testDefaults)
			require.Error(t, err)
			assert.Nil(t, columns)

			var e *errcodes.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "validation_error", e.Code)
			assert.Equal(t, before, *book)
		})
	}
}

func TestApplyEdit_EmptyDescriptionAllowed(t *testing.T) {
	t.Parallel()
	book := importedBook()
	book.Description = "Old"
	book.DescriptionSource = models.DataSourceEPUBMetadata

	columns, err := ApplyEdit(book, EditOverride{Description: pointerutil.String("")}, testNormalizer, testDefaults)
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "description_source"}, columns)
	assert.Equal(t, "", book.Description)
}

func TestApplyEdit_BlankFieldsFallBackToDefaults(t *testing.T) {
	t.Parallel()
	book := importedBook()
	book.Language = "fr"
	book.LanguageSource = models.DataSourceOPFSidecar
	book.Category = "Poetry"
	book.CategorySource = models.DataSourceOPFSidecar

	columns, err := ApplyEdit(book, EditOverride{
		Author:   pointerutil.String("  "),
		Language: pointerutil.String(""),
		Category: pointerutil.String(" "),
	}, testNormalizer, testDefaults)
	require.NoError(t, err)

	assert.Equal(t, []string{"author", "author_source", "language", "language_source", "category", "category_source"}, columns)
	assert.Equal(t, "Unknown", book.Author)
	assert.Equal(t, models.DataSourceDefault, book.AuthorSource)
	assert.Equal(t, "en", book.Language)
	assert.Equal(t, models.DataSourceDefault, book.LanguageSource)
	assert.Equal(t, "General", book.Category)
	assert.Equal(t, models.DataSourceDefault, book.CategorySource)
}
