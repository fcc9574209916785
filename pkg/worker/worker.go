package worker

import (
	"context"
	"time"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/importer"
	"github.com/bookdrop/bookdrop/pkg/joblogs"
	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type Worker struct {
	config *config.Config
	log    logger.Logger
	// processID marks the jobs this worker has claimed. In-progress jobs
	// owned by any other ID are treated as orphaned and picked up again.
	processID string

	processFuncs map[string]func(ctx context.Context, job *models.Job) error

	batch         *importer.BatchImporter
	jobService    *jobs.Service
	jobLogService *joblogs.Service

	queue          chan *models.Job
	claimed        chan struct{}
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
}

func New(cfg *config.Config, db *bun.DB, batch *importer.BatchImporter) *Worker {
	w := &Worker{
		config:    cfg,
		log:       logger.New(),
		processID: uuid.NewString()[:8],

		batch:         batch,
		jobService:    jobs.NewService(db),
		jobLogService: joblogs.NewService(db),

		queue:          make(chan *models.Job),
		claimed:        make(chan struct{}),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
	}

	w.processFuncs = map[string]func(ctx context.Context, job *models.Job) error{
		models.JobTypeImportArchive: w.ProcessImportArchiveJob,
	}

	return w
}

func (w *Worker) Start() {
	go w.poll()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
}

// poll feeds claimable jobs to the processors. It checks again right away
// after finding a job and waits WorkerPollInterval otherwise.
func (w *Worker) poll() {
	defer func() { w.doneFetching <- struct{}{} }()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-timer.C:
		}

		job, err := w.jobService.NextJob(context.Background(), w.processID)
		if err != nil {
			w.log.Err(err).Error("next job error")
		}
		if job == nil {
			timer.Reset(w.config.WorkerPollInterval)
			continue
		}

		select {
		case w.queue <- job:
		case <-w.shutdown:
			return
		}
		// Wait for a processor to claim the job so it isn't queued twice.
		select {
		case <-w.claimed:
		case <-w.shutdown:
			return
		}
		timer.Reset(0)
	}
}

func (w *Worker) processJobs() {
	for {
		select {
		case <-w.shutdown:
			w.doneProcessing <- struct{}{}
			return
		case job := <-w.queue:
			w.runJob(job, w.signalClaimed)
		}
	}
}

func (w *Worker) signalClaimed() {
	select {
	case w.claimed <- struct{}{}:
	case <-w.shutdown:
	}
}

// runJob claims the job, runs its process function and records the final
// status. A failed job is marked failed rather than retried. onClaimed, if
// set, is called once the claim has been attempted.
func (w *Worker) runJob(job *models.Job, onClaimed func()) {
	log := w.log.ID(uuid.NewString()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": w.processID})
	ctx := log.WithContext(context.Background())

	claimed, err := w.jobService.ClaimJob(ctx, job, w.processID)
	if onClaimed != nil {
		onClaimed()
	}
	if err != nil {
		log.Err(err).Error("claim job error")
		return
	}
	if !claimed {
		log.Debug("job already claimed")
		return
	}

	metrics.JobStarted(job.Type)
	defer metrics.JobFinished(job.Type)

	// Find and invoke the appropriate process function.
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		err = errors.Errorf("no process function for job type %q", job.Type)
	} else {
		err = fn(ctx, job)
	}

	job.Status = models.JobStatusCompleted
	if err != nil {
		log.Err(err).Error("process error")
		job.Status = models.JobStatusFailed
	}

	// Persist the final status so that it's not picked up anymore.
	err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
		Columns: []string{"status"},
	})
	if err != nil {
		log.Err(err).Error("update job error")
	}
}

func (w *Worker) Shutdown() {
	close(w.shutdown)

	<-w.doneFetching
	for i := 0; i < w.config.WorkerProcesses; i++ {
		<-w.doneProcessing
	}
}
