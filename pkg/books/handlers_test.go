package books

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bookdrop/bookdrop/internal/testgen"
	"github.com/bookdrop/bookdrop/pkg/binder"
	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func setupTestServer(t *testing.T) (*echo.Echo, *bun.DB, *storage.Store) {
	t.Helper()

	db := testgen.NewTestDB(t)
	dir := testgen.TempDir(t, "books-handlers-*")
	store, err := storage.NewAt(filepath.Join(dir, "books"), filepath.Join(dir, "covers"))
	require.NoError(t, err)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	RegisterRoutesWithGroup(e.Group("/books"), config.NewForTest(), db, testNormalizer, store)

	return e, db, store
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func TestHandlers_RetrieveAndList(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	svc := NewService(db)
	ctx := context.Background()

	dune := newTestBook("Dune", "Frank Herbert", "en", "Science Fiction")
	require.NoError(t, svc.CreateBook(ctx, dune))
	require.NoError(t, svc.CreateBook(ctx, newTestBook("Candide", "Voltaire", "fr", "Satire")))

	rr := doRequest(e, http.MethodGet, "/books/"+strconv.Itoa(dune.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "English", got.LanguageName)

	rr = doRequest(e, http.MethodGet, "/books?language=fre", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Books, 1)
	assert.Equal(t, "Candide", list.Books[0].Title)

	rr = doRequest(e, http.MethodGet, "/books?language=xx", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(e, http.MethodGet, "/books/999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(e, http.MethodGet, "/books/not-a-number", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlers_Update(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newTestBook("Draft", "Anon", "en", "General")
	require.NoError(t, svc.CreateBook(ctx, book))
	path := "/books/" + strconv.Itoa(book.ID)

	rr := doRequest(e, http.MethodPost, path, `{"title":"Final Title","language":"de"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Final Title", got.Title)
	assert.Equal(t, models.DataSourceManual, got.TitleSource)
	assert.Equal(t, "de", got.Language)
	assert.Equal(t, "German", got.LanguageName)

	rr = doRequest(e, http.MethodPost, path, `{"title":"   ","author":"Someone Else"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	stored, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Final Title", stored.Title)
	assert.Equal(t, "Anon", stored.Author, "a rejected edit changes nothing")

	rr = doRequest(e, http.MethodPost, "/books/999", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlers_DeleteAndCover(t *testing.T) {
	t.Parallel()
	e, db, store := setupTestServer(t)
	svc := NewService(db)
	ctx := context.Background()

	src := testgen.GeneratePDF(t, testgen.TempDir(t, "src-*"), "book.pdf", testgen.PDFOptions{})
	storedName, _, err := store.SaveBook(src, "book.pdf")
	require.NoError(t, err)
	img := testgen.GenerateImage(t, "image/png")
	coverName, err := store.SaveCover(storedName, img, ".png")
	require.NoError(t, err)

	book := newTestBook("With Cover", "A", "en", "General")
	book.StoredFilename = storedName
	book.StoredCoverFilename = &coverName
	require.NoError(t, svc.CreateBook(ctx, book))
	path := "/books/" + strconv.Itoa(book.ID)

	rr := doRequest(e, http.MethodGet, path+"/cover", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, img, rr.Body.Bytes())

	rr = doRequest(e, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(e, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(e, http.MethodGet, path+"/cover", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlers_UpdateBlankAuthorFallsBack(t *testing.T) {
	t.Parallel()
	e, db, _ := setupTestServer(t)
	svc := NewService(db)
	ctx := context.Background()

	book := newTestBook("Draft", "Anon", "en", "Poetry")
	require.NoError(t, svc.CreateBook(ctx, book))

	rr := doRequest(e, http.MethodPost, "/books/"+strconv.Itoa(book.ID), `{"author":"","category":"","description":""}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Unknown", got.Author)
	assert.Equal(t, models.DataSourceDefault, got.AuthorSource)
	assert.Equal(t, "General", got.Category)
	assert.Equal(t, "", got.Description)
	assert.Equal(t, models.DataSourceManual, got.DescriptionSource)
}

func uploadCover(t *testing.T, e *echo.Echo, target, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("cover", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func TestHandlers_ReplaceCover(t *testing.T) {
	t.Parallel()
	e, db, store := setupTestServer(t)
	svc := NewService(db)
	ctx := context.Background()

	src := testgen.GeneratePDF(t, testgen.TempDir(t, "src-*"), "book.pdf", testgen.PDFOptions{})
	storedName, _, err := store.SaveBook(src, "book.pdf")
	require.NoError(t, err)
	oldCover, err := store.SaveCover(storedName, testgen.GenerateImage(t, "image/png"), ".png")
	require.NoError(t, err)

	book := newTestBook("Replace Me", "A", "en", "General")
	book.StoredFilename = storedName
	book.StoredCoverFilename = &oldCover
	book.CoverSource = pointerutil.String(models.CoverSourceEmbeddedItem)
	require.NoError(t, svc.CreateBook(ctx, book))
	path := "/books/" + strconv.Itoa(book.ID) + "/cover"

	jpeg := testgen.GenerateImage(t, "image/jpeg")
	rr := uploadCover(t, e, path, "new.jpg", jpeg)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.NotNil(t, got.CoverSource)
	assert.Equal(t, models.CoverSourceExplicitUpload, *got.CoverSource)
	require.NotNil(t, got.StoredCoverFilename)
	assert.Equal(t, ".jpg", filepath.Ext(*got.StoredCoverFilename))

	oldPath, err := store.CoverPath(oldCover)
	require.NoError(t, err)
	assert.NoFileExists(t, oldPath)

	rr = doRequest(e, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, jpeg, rr.Body.Bytes())

	rr = uploadCover(t, e, path, "junk.png", []byte("not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = uploadCover(t, e, path, "cover.gif", jpeg)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = uploadCover(t, e, "/books/999/cover", "new.jpg", jpeg)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	stored, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	newPath, err := store.CoverPath(*stored.StoredCoverFilename)
	require.NoError(t, err)
	_, err = os.Stat(newPath)
	assert.NoError(t, err)
}
