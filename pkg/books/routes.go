package books

import (
	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, cfg *config.Config, db *bun.DB, normalizer *languages.Normalizer, store *storage.Store) {
	h := &handler{
		config:      cfg,
		defaults:    DefaultsFromConfig(cfg),
		bookService: NewService(db),
		normalizer:  normalizer,
		store:       store,
	}

	g.GET("", h.list)
	g.GET("/categories", h.categories)
	g.GET("/:id", h.retrieve)
	g.POST("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/cover", h.cover)
	g.POST("/:id/cover", h.replaceCover)
}
