package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// activeStatuses are the statuses of jobs that haven't finished yet.
var activeStatuses = []string{models.JobStatusPending, models.JobStatusInProgress}

type RetrieveJobOptions struct {
	ID *int
}

type ListJobsOptions struct {
	Limit    *int
	Offset   *int
	Statuses []string
	Type     *string

	includeTotal bool
}

type UpdateJobOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJob(ctx context.Context, job *models.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt

	if job.Data == "" {
		if err := job.MarshalData(); err != nil {
			return err
		}
	}

	_, err := svc.db.
		NewInsert().
		Model(job).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.Job, error) {
	job := &models.Job{}

	q := svc.db.
		NewSelect().
		Model(job)

	if opts.ID != nil {
		q = q.Where("j.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	if job.Data != "" {
		// Unmarshal the data into a struct to be returned.
		err := job.UnmarshalData()
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.Job, error) {
	j, _, err := svc.listJobsWithTotal(ctx, opts)
	return j, errors.WithStack(err)
}

func (svc *Service) ListJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	opts.includeTotal = true
	return svc.listJobsWithTotal(ctx, opts)
}

func (svc *Service) listJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	jobs := []*models.Job{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&jobs).
		Order("j.created_at ASC", "j.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Statuses != nil {
		q = q.Where("j.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Type != nil {
		q = q.Where("j.type = ?", *opts.Type)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, job := range jobs {
		err := job.UnmarshalData()
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}

	return jobs, total, nil
}

// NextJob returns the oldest job that processID could claim, or nil when
// there is none. See ClaimJob.
func (svc *Service) NextJob(ctx context.Context, processID string) (*models.Job, error) {
	job := &models.Job{}
	err := svc.db.
		NewSelect().
		Model(job).
		Where("j.status IN (?)", bun.In(activeStatuses)).
		Where("j.process_id IS NULL OR j.process_id != ?", processID).
		Order("j.created_at ASC", "j.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// Unreadable data is left for the worker to fail the job on.
	_ = job.UnmarshalData()
	return job, nil
}

// HasActiveImportForArchive reports whether a pending or in-progress import
// job already targets the archive at path.
func (svc *Service) HasActiveImportForArchive(ctx context.Context, path string) (bool, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("type = ?", models.JobTypeImportArchive).
		Where("status IN (?)", bun.In(activeStatuses)).
		Where("json_extract(data, '$.archive_path') = ?", path).
		Count(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.Job, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	job.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(job).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Job")
	}

	return nil
}

// ClaimJob marks the job in progress for processID. A job can be claimed
// while it's pending or while it's in progress under another process (one
// that died mid-job). It returns false when someone else got there first.
func (svc *Service) ClaimJob(ctx context.Context, job *models.Job, processID string) (bool, error) {
	now := time.Now()
	res, err := svc.db.
		NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusInProgress).
		Set("process_id = ?", processID).
		Set("updated_at = ?", now).
		Where("id = ?", job.ID).
		WhereGroup(" AND ", func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.
				Where("status = ?", models.JobStatusPending).
				WhereOr("status = ? AND (process_id IS NULL OR process_id != ?)", models.JobStatusInProgress, processID)
		}).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	if n == 0 {
		return false, nil
	}

	job.Status = models.JobStatusInProgress
	job.ProcessID = &processID
	job.UpdatedAt = now
	return true, nil
}

// EnqueueArchiveImport creates a pending import job for the archive at path.
// When removeArchive is set the job deletes the archive once it finishes.
func (svc *Service) EnqueueArchiveImport(ctx context.Context, path string, removeArchive bool) (*models.Job, error) {
	job := &models.Job{
		Type:   models.JobTypeImportArchive,
		Status: models.JobStatusPending,
		DataParsed: &models.JobImportArchiveData{
			ArchivePath:   path,
			RemoveArchive: removeArchive,
		},
	}
	if err := svc.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
