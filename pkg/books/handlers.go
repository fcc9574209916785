package books

import (
	"io"
	"net/http"
	"strconv"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/covers"
	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/fileutils"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
)

const maxCoverUploadBytes = 20 << 20

type handler struct {
	config      *config.Config
	defaults    Defaults
	bookService *Service
	normalizer  *languages.Normalizer
	store       *storage.Store
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListBooksOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Search:   params.Search,
		Category: params.Category,
	}
	if params.Language != nil {
		code, ok := h.normalizer.Normalize(*params.Language)
		if !ok {
			return errcodes.ValidationError("Language " + *params.Language + " is not supported.")
		}
		opts.Language = &code
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the book.
	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	columns, err := ApplyEdit(book, EditOverride{
		Title:       params.Title,
		Author:      params.Author,
		Description: params.Description,
		Language:    params.Language,
		Category:    params.Category,
	}, h.normalizer, h.defaults)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.bookService.UpdateBook(ctx, book, UpdateBookOptions{Columns: columns})
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if err := h.bookService.DeleteBook(ctx, id, h.store); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if !book.HasCover() {
		return errcodes.NotFound("Cover")
	}

	coverPath, err := h.store.CoverPath(*book.StoredCoverFilename)
	if err != nil {
		return errcodes.NotFound("Cover")
	}
	return errors.WithStack(c.File(coverPath))
}

func (h *handler) categories(c echo.Context) error {
	ctx := c.Request().Context()

	categories, err := h.bookService.Categories(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, categories))
}

// replaceCover swaps the book's cover for an uploaded image.
func (h *handler) replaceCover(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := ReplaceCoverPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	fh, ok := params.FormFiles[fieldCover]
	if !ok {
		return errcodes.ValidationError(`"cover" is required.`)
	}
	if ext := fileutils.LowerExt(fh.Filename); !h.config.IsImageExtension(ext) {
		return errcodes.UnsupportedFileType(ext)
	}
	if fh.Size > maxCoverUploadBytes {
		return errcodes.PayloadTooLarge(maxCoverUploadBytes)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	f, err := fh.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxCoverUploadBytes+1))
	f.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	asset, err := covers.Validate(data)
	if err != nil {
		return errcodes.ValidationError("Cover is not a valid JPEG, PNG or WebP image.")
	}

	name, err := h.store.SaveCover(book.StoredFilename, asset.Data, asset.Ext)
	if err != nil {
		return errors.WithStack(err)
	}

	var previous string
	if book.HasCover() {
		previous = *book.StoredCoverFilename
	}
	book.StoredCoverFilename = &name
	book.CoverSource = pointerutil.String(models.CoverSourceExplicitUpload)
	err = h.bookService.UpdateBook(ctx, book, UpdateBookOptions{
		Columns: []string{"stored_cover_filename", "cover_source"},
	})
	if err != nil {
		if previous != name {
			_ = h.store.RemoveCover(name)
		}
		return errors.WithStack(err)
	}
	if previous != "" && previous != name {
		if err := h.store.RemoveCover(previous); err != nil {
			log.Warn("failed to remove replaced cover", logger.Data{"cover": previous, "error": err.Error()})
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}
