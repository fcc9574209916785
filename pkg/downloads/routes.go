package downloads

import (
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers download routes on the books group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, store *storage.Store) {
	h := &handler{
		downloadService: NewService(db),
		store:           store,
	}

	g.GET("/:id/download", h.download)
	g.GET("/:id/downloads", h.listEvents)
}
