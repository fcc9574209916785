package importer

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const (
	BatchOutcomeCompleted  = "completed"
	BatchOutcomeUnreadable = "unreadable"
)

var (
	ErrUnitTimeout = errors.New("import timed out")
	ErrCanceled    = errors.New("import canceled")
)

// UnitImporter is what the batch runs for every unit. *Pipeline implements
// it.
type UnitImporter interface {
	ImportUnit(ctx context.Context, unit ImportUnit) (*models.Book, error)
	// Discard undoes an import that finished after its unit had already
	// been reported as timed out.
	Discard(ctx context.Context, book *models.Book) error
}

type BatchImporter struct {
	importer     UnitImporter
	workers      int
	unitTimeout  time.Duration
	workspaceDir string
	maxExtracted int64
	scanOptions  ScanOptions
	onProgress   func(done, total int)
}

func NewBatchImporter(cfg *config.Config, importer UnitImporter) *BatchImporter {
	return &BatchImporter{
		importer:     importer,
		workers:      cfg.ImportWorkers,
		unitTimeout:  cfg.ImportUnitTimeout,
		workspaceDir: cfg.WorkspaceDir,
		maxExtracted: cfg.MaxExtractedBytes,
		scanOptions: ScanOptions{
			IsBookExtension:  cfg.IsBookExtension,
			IsImageExtension: cfg.IsImageExtension,
		},
	}
}

// WithProgress returns a copy of b that calls fn after every finished unit.
// Calls are serialized.
func (b *BatchImporter) WithProgress(fn func(done, total int)) *BatchImporter {
	cp := *b
	cp.onProgress = fn
	return &cp
}

// Run imports every unit and reports the outcome of each. A failing unit
// never stops the others.
func (b *BatchImporter) Run(ctx context.Context, units []ImportUnit) *Report {
	log := logger.FromContext(ctx)

	results := make([]unitResult, len(units))
	workers := b.workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, unit := range units {
		if ctx.Err() != nil {
			results[i] = unitResult{err: ErrCanceled}
			continue
		}
		select {
		case <-ctx.Done():
			results[i] = unitResult{err: ErrCanceled}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, unit ImportUnit) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			res := b.importOne(ctx, unit)
			metrics.ObserveUnitDuration(time.Since(start))
			results[i] = res

			if res.err != nil {
				metrics.IncUnitFailed()
				log.Warn("unit import failed", logger.Data{"unit": unit.RelPath, "error": res.err.Error()})
			} else {
				metrics.IncUnitSucceeded()
			}

			if b.onProgress != nil {
				mu.Lock()
				done++
				b.onProgress(done, len(units))
				mu.Unlock()
			}
		}(i, unit)
	}
	wg.Wait()

	report := buildReport(units, results)
	metrics.IncBatch(BatchOutcomeCompleted)
	log.Info("batch finished", logger.Data{
		"attempted": report.UnitsAttempted,
		"succeeded": report.UnitsSucceeded,
		"failed":    report.UnitsFailed(),
		"anomalies": len(report.Anomalies),
	})
	return report
}

// importOne runs a unit under its own deadline. A unit that overruns is
// reported as failed right away; if it later completes anyway its book is
// discarded so the report stays truthful.
func (b *BatchImporter) importOne(ctx context.Context, unit ImportUnit) (res unitResult) {
	unitCtx := ctx
	cancel := func() {}
	if b.unitTimeout > 0 {
		unitCtx, cancel = context.WithTimeout(ctx, b.unitTimeout)
	}

	ch := make(chan unitResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- unitResult{err: errors.Errorf("panic during import: %v", r)}
			}
		}()
		book, err := b.importer.ImportUnit(unitCtx, unit)
		ch <- unitResult{book: book, err: err}
	}()

	select {
	case res = <-ch:
		if res.err != nil && errors.Is(unitCtx.Err(), context.DeadlineExceeded) {
			res.err = ErrUnitTimeout
		}
		cancel()
		return res
	case <-unitCtx.Done():
		cancel()
		go b.discardLate(ctx, unit, ch)
		if errors.Is(unitCtx.Err(), context.DeadlineExceeded) {
			return unitResult{err: ErrUnitTimeout}
		}
		return unitResult{err: ErrCanceled}
	}
}

func (b *BatchImporter) discardLate(ctx context.Context, unit ImportUnit, ch <-chan unitResult) {
	res := <-ch
	if res.err != nil || res.book == nil {
		return
	}
	log := logger.FromContext(ctx)
	if err := b.importer.Discard(context.WithoutCancel(ctx), res.book); err != nil {
		log.Err(err).Error("failed to discard late import", logger.Data{"unit": unit.RelPath, "book_id": res.book.ID})
		return
	}
	log.Info("discarded late import", logger.Data{"unit": unit.RelPath, "book_id": res.book.ID})
}

// RunArchive extracts the archive into a fresh workspace, scans it and
// imports every unit found. The workspace is removed on every path out. An
// archive that can't be opened or extracted fails the whole batch with
// errcodes.ArchiveUnreadable and imports nothing.
func (b *BatchImporter) RunArchive(ctx context.Context, zipPath string) (*Report, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"archive": zipPath})

	workspace, err := os.MkdirTemp(b.workspaceDir, "bookdrop-import-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create workspace")
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			log.Warn("failed to remove workspace", logger.Data{"workspace": workspace, "error": err.Error()})
		}
	}()

	if err := ExtractArchive(ctx, zipPath, workspace, b.maxExtracted); err != nil {
		metrics.IncBatch(BatchOutcomeUnreadable)
		log.Warn("archive unreadable", logger.Data{"error": err.Error()})
		return nil, errors.WithStack(&archiveError{cause: err})
	}

	return b.RunDirectory(log.WithContext(ctx), workspace)
}

// RunDirectory scans dir on disk and imports every unit found.
func (b *BatchImporter) RunDirectory(ctx context.Context, dir string) (*Report, error) {
	opts := b.scanOptions
	opts.Root = dir
	units, err := Scan(os.DirFS(dir), opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan import directory")
	}
	logger.FromContext(ctx).Info("scanned import units", logger.Data{"units": len(units)})
	return b.Run(ctx, units), nil
}

// archiveError carries the extraction failure while matching
// errcodes.ArchiveUnreadable.
type archiveError struct {
	cause error
}

func (e *archiveError) Error() string {
	return "archive unreadable: " + e.cause.Error()
}

func (e *archiveError) Unwrap() []error {
	return []error{errcodes.ArchiveUnreadable(), e.cause}
}
