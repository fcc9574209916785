package main

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/database"
	"github.com/bookdrop/bookdrop/pkg/importer"
	"github.com/bookdrop/bookdrop/pkg/inbox"
	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/migrations"
	"github.com/bookdrop/bookdrop/pkg/pdf"
	"github.com/bookdrop/bookdrop/pkg/server"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/bookdrop/bookdrop/pkg/version"
	"github.com/bookdrop/bookdrop/pkg/worker"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting bookdrop", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := os.MkdirAll(cfg.WorkspaceDir, 0o755); err != nil {
		log.Err(errors.WithStack(err)).Fatal("workspace directory error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Err(err).Fatal("storage error")
	}
	log.Info("storage initialized", logger.Data{"books": cfg.BooksDir(), "covers": cfg.CoversDir()})

	normalizer := languages.NewNormalizer(cfg.SupportedLanguages)
	pdfReader := pdf.NewReader(cfg, normalizer)
	pipeline := importer.NewPipeline(cfg, db, store, normalizer, pdfReader)
	batch := importer.NewBatchImporter(cfg, pipeline)

	wrkr := worker.New(cfg, db, batch)

	var watcher *inbox.Watcher
	if cfg.InboxDir != "" {
		watcher = inbox.New(cfg.InboxDir, inbox.DefaultSettle, inbox.JobEnqueuer(jobs.NewService(db)))
	}

	srv, err := server.New(cfg, db, server.Dependencies{
		Store:      store,
		Normalizer: normalizer,
		Batch:      batch,
	})
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started", logger.Data{"processes": cfg.WorkerProcesses})

	if watcher != nil {
		if err := watcher.Start(); err != nil {
			log.Err(err).Fatal("inbox watcher error")
		}
		log.Info("inbox watcher started", logger.Data{"dir": cfg.InboxDir})
	}

	<-graceful
	log.Info("starting graceful shutdown")

	if watcher != nil {
		watcher.Stop()
		log.Info("inbox watcher stopped")
	}

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	if err := pdfReader.Close(); err != nil {
		log.Err(err).Warn("pdf reader close error")
	}

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
