package books

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bookdrop/bookdrop/internal/testgen"
	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBook(title, author, lang, category string) *models.Book {
	return &models.Book{
		Title:             title,
		TitleSource:       models.DataSourceOPFSidecar,
		Author:            author,
		AuthorSource:      models.DataSourceOPFSidecar,
		DescriptionSource: models.DataSourceDefault,
		Language:          lang,
		LanguageSource:    models.DataSourceOPFSidecar,
		Category:          category,
		CategorySource:    models.DataSourceOPFSidecar,
		ContainerType:     models.ContainerTypePDF,
		OriginalFilename:  title + ".pdf",
		StoredFilename:    storage.StoredName(title + ".pdf"),
		FileSize:          1024,
	}
}

func TestCreateAndRetrieveBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(testgen.NewTestDB(t))

	book := newTestBook("Dune", "Frank Herbert", "en", "Science Fiction")
	require.NoError(t, svc.CreateBook(ctx, book))
	assert.NotZero(t, book.ID)
	assert.False(t, book.UploadDate.IsZero())

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "English", got.LanguageName)
	assert.Equal(t, 0, got.DownloadCount)

	got, err = svc.RetrieveBook(ctx, RetrieveBookOptions{StoredFilename: &book.StoredFilename})
	require.NoError(t, err)
	assert.Equal(t, book.ID, got.ID)
}

func TestCreateBook_RejectsEmptyTitle(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))

	err := svc.CreateBook(context.Background(), newTestBook("", "A", "en", "General"))
	assert.Error(t, err)
}

func TestRetrieveBook_NotFound(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))

	_, err := svc.RetrieveBook(context.Background(), RetrieveBookOptions{ID: pointerutil.Int(42)})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestListBooks_Filters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(testgen.NewTestDB(t))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fixtures := []*models.Book{
		newTestBook("Dune", "Frank Herbert", "en", "Science Fiction"),
		newTestBook("Le Petit Prince", "Antoine de Saint-Exupéry", "fr", "Fiction"),
		newTestBook("Children of Dune", "Frank Herbert", "en", "Science Fiction"),
		newTestBook("Faust", "Goethe", "de", "Drama"),
	}
	for i, b := range fixtures {
		b.UploadDate = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, svc.CreateBook(ctx, b))
	}

	all, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, "Faust", all[0].Title, "newest upload first")

	found, err := svc.ListBooks(ctx, ListBooksOptions{Search: pointerutil.String("herbert")})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = svc.ListBooks(ctx, ListBooksOptions{Search: pointerutil.String("dune"), Language: pointerutil.String("en")})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = svc.ListBooks(ctx, ListBooksOptions{Language: pointerutil.String("fr")})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Le Petit Prince", found[0].Title)

	found, err = svc.ListBooks(ctx, ListBooksOptions{Category: pointerutil.String("Drama")})
	require.NoError(t, err)
	require.Len(t, found, 1)

	page, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{Limit: pointerutil.Int(2), Offset: pointerutil.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Le Petit Prince", page[0].Title)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Drama", "Fiction", "Science Fiction"}, categories)
}

func TestUpdateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(testgen.NewTestDB(t))

	book := newTestBook("Draft", "A", "en", "General")
	require.NoError(t, svc.CreateBook(ctx, book))

	columns, err := ApplyEdit(book, EditOverride{Title: pointerutil.String("Final")}, testNormalizer, testDefaults)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: columns}))

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, models.DataSourceManual, got.TitleSource)

	missing := newTestBook("Ghost", "A", "en", "General")
	missing.ID = 9999
	err = svc.UpdateBook(ctx, missing, UpdateBookOptions{Columns: []string{"title"}})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestDeleteBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testgen.NewTestDB(t)
	svc := NewService(db)

	dir := testgen.TempDir(t, "books-delete-*")
	store, err := storage.NewAt(filepath.Join(dir, "books"), filepath.Join(dir, "covers"))
	require.NoError(t, err)

	src := testgen.GeneratePDF(t, dir, "Doomed.pdf", testgen.PDFOptions{Title: "Doomed"})
	storedName, size, err := store.SaveBook(src, "Doomed.pdf")
	require.NoError(t, err)
	coverName, err := store.SaveCover(storedName, testgen.GenerateImage(t, "image/png"), ".png")
	require.NoError(t, err)

	book := newTestBook("Doomed", "A", "en", "General")
	book.StoredFilename = storedName
	book.StoredCoverFilename = &coverName
	book.FileSize = size
	require.NoError(t, svc.CreateBook(ctx, book))

	_, err = db.NewInsert().Model(&models.DownloadEvent{BookID: book.ID, CreatedAt: time.Now()}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(ctx, book.ID, store))

	_, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
	events, err := db.NewSelect().Model((*models.DownloadEvent)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, events)
	assert.Equal(t, 0, testgen.CountFiles(t, filepath.Join(dir, "books")))
	assert.Equal(t, 0, testgen.CountFiles(t, filepath.Join(dir, "covers")))

	err = svc.DeleteBook(ctx, book.ID, store)
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}
