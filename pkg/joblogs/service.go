package joblogs

import (
	"context"
	"time"

	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type ListJobLogsOptions struct {
	JobID    int
	AfterID  *int
	Levels   []string
	UnitPath *string
	// Limit caps the result when positive.
	Limit int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJobLog(ctx context.Context, entry *models.JobLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := svc.db.
		NewInsert().
		Model(entry).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) ListJobLogs(ctx context.Context, opts ListJobLogsOptions) ([]*models.JobLog, error) {
	logs := []*models.JobLog{}

	q := svc.db.
		NewSelect().
		Model(&logs).
		Where("jl.job_id = ?", opts.JobID).
		Order("jl.id ASC")

	if opts.AfterID != nil {
		q = q.Where("jl.id > ?", *opts.AfterID)
	}

	if opts.UnitPath != nil {
		q = q.Where("jl.unit_path = ?", *opts.UnitPath)
	}
	if len(opts.Levels) > 0 {
		q = q.Where("jl.level IN (?)", bun.In(opts.Levels))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return logs, nil
}
