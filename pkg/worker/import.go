package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bookdrop/bookdrop/pkg/importer"
	"github.com/bookdrop/bookdrop/pkg/joblogs"
	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const progressInterval = time.Second

// ProcessImportArchiveJob imports every unit in the job's archive and stores
// the batch summary on the job. Unit failures and anomalies go to the job
// log; only an unreadable archive fails the job.
func (w *Worker) ProcessImportArchiveJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	data, ok := job.DataParsed.(*models.JobImportArchiveData)
	if !ok {
		return errors.Errorf("unexpected data for import job: %T", job.DataParsed)
	}

	jobLog := w.jobLogService.NewJobLogger(ctx, job.ID, log)
	jobLog.Info("archive import started", logger.Data{"archive": filepath.Base(data.ArchivePath)})

	if data.RemoveArchive {
		defer func() {
			if err := os.Remove(data.ArchivePath); err != nil && !os.IsNotExist(err) {
				log.Warn("failed to remove archive", logger.Data{"archive": data.ArchivePath, "error": err.Error()})
			}
		}()
	}

	tracker := &progressTracker{ctx: ctx, job: job, jobs: w.jobService}
	report, err := w.batch.WithProgress(tracker.update).RunArchive(ctx, data.ArchivePath)
	if err != nil {
		jobLog.Error("archive unreadable", err, logger.Data{"archive": filepath.Base(data.ArchivePath)})
		return err
	}

	logReport(jobLog, report)

	data.Summary = report.Summary()
	job.DataParsed = data
	job.Progress = 100
	if err := job.MarshalData(); err != nil {
		return err
	}
	err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
		Columns: []string{"data", "progress"},
	})
	if err != nil {
		return errors.WithStack(err)
	}

	jobLog.Info("archive import finished", logger.Data{
		"attempted": data.Summary.UnitsAttempted,
		"succeeded": data.Summary.UnitsSucceeded,
		"failed":    data.Summary.UnitsFailed,
		"anomalies": data.Summary.Anomalies,
	})
	return nil
}

func logReport(jobLog *joblogs.JobLogger, report *importer.Report) {
	for _, f := range report.Failures {
		jobLog.UnitFailed(f.Path, f.Reason)
	}
	for _, a := range report.Anomalies {
		jobLog.UnitAnomaly(a.Path, a.Kind)
	}
}

// progressTracker writes the job's progress at most once per interval.
type progressTracker struct {
	ctx  context.Context
	job  *models.Job
	jobs *jobs.Service

	mu   sync.Mutex
	last time.Time
}

func (p *progressTracker) update(done, total int) {
	if total == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if done < total && time.Since(p.last) < progressInterval {
		return
	}
	p.last = time.Now()

	progress := &models.Job{ID: p.job.ID, Progress: done * 99 / total}
	err := p.jobs.UpdateJob(p.ctx, progress, jobs.UpdateJobOptions{Columns: []string{"progress"}})
	if err != nil {
		logger.FromContext(p.ctx).Err(err).Warn("failed to update job progress")
	}
}
