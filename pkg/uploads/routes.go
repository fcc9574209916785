package uploads

import (
	"net/http"

	"github.com/bookdrop/bookdrop/pkg/books"
	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/importer"
	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the upload routes. Request bodies are
// capped at the configured upload size plus room for the multipart framing
// and the optional sidecar and cover.
func RegisterRoutesWithGroup(g *echo.Group, cfg *config.Config, db *bun.DB, batch *importer.BatchImporter) {
	h := &handler{
		config:      cfg,
		batch:       batch,
		bookService: books.NewService(db),
		jobService:  jobs.NewService(db),
	}

	limit := bodyLimit(cfg.MaxUploadBytes)
	g.POST("/book", h.uploadBook, limit)
	g.POST("/archive", h.uploadArchive, limit)
}

const framingAllowance = 64 << 20

func bodyLimit(maxUpload int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if maxUpload > 0 {
				req := c.Request()
				req.Body = http.MaxBytesReader(c.Response(), req.Body, maxUpload+framingAllowance)
			}
			return next(c)
		}
	}
}
