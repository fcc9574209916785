package downloads

import (
	"net/http"
	"os"
	"strconv"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	downloadService *Service
	store           *storage.Store
}

func (h *handler) download(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := DownloadQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if params.Email != nil && *params.Email == "" {
		params.Email = nil
	}

	// A download only counts once the file is known to be servable.
	book, err := h.downloadService.RetrieveBook(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	bookPath, err := h.store.BookPath(book.StoredFilename)
	if err != nil {
		return errcodes.NotFound("Book file")
	}
	if _, err := os.Stat(bookPath); err != nil {
		return errcodes.NotFound("Book file")
	}

	if _, err := h.downloadService.RecordDownload(ctx, id, params.Email); err != nil {
		return errors.WithStack(err)
	}

	metrics.IncrementDownloads(book.ContainerType)

	return errors.WithStack(c.Attachment(bookPath, book.OriginalFilename))
}

func (h *handler) listEvents(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := ListEventsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	events, total, err := h.downloadService.ListEventsWithTotal(ctx, ListEventsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		BookID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Events []*models.DownloadEvent `json:"events"`
		Total  int                     `json:"total"`
	}{events, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
