package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bookdrop/bookdrop/pkg/binder"
	"github.com/bookdrop/bookdrop/pkg/books"
	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/downloads"
	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/importer"
	"github.com/bookdrop/bookdrop/pkg/joblogs"
	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/bookdrop/bookdrop/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// Dependencies are the long-lived components the HTTP handlers share with
// the worker and the inbox watcher.
type Dependencies struct {
	Store      *storage.Store
	Normalizer *languages.Normalizer
	Batch      *importer.BatchImporter
}

func New(cfg *config.Config, db *bun.DB, deps Dependencies) (*http.Server, error) {
	e, err := newEcho(cfg, db, deps)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, deps Dependencies) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	if cfg.MetricsEnabled {
		metrics.RegisterRoutes(e)
	}
	languages.RegisterRoutes(e, deps.Normalizer)

	booksGroup := e.Group("/books")
	books.RegisterRoutesWithGroup(booksGroup, cfg, db, deps.Normalizer, deps.Store)
	downloads.RegisterRoutesWithGroup(booksGroup, db, deps.Store)

	jobsGroup := e.Group("/jobs")
	jobs.RegisterRoutesWithGroup(jobsGroup, db)
	joblogs.RegisterRoutes(jobsGroup, db)

	uploads.RegisterRoutesWithGroup(e.Group("/uploads"), cfg, db, deps.Batch)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
