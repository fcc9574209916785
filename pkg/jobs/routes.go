package jobs

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers job routes on a pre-configured group.
// Jobs are created by the upload and inbox paths, never directly.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	jobService := NewService(db)

	h := &handler{
		jobService: jobService,
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
}
