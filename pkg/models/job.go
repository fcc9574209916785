package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypeImportArchive = "import_archive"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `bun:",nullzero" json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	Progress   int         `json:"progress"`
	ProcessID  *string     `json:"process_id,omitempty"`
}

func (job *Job) UnmarshalData() error {
	switch job.Type {
	case JobTypeImportArchive:
		job.DataParsed = &JobImportArchiveData{}
	default:
		return errors.Errorf("unknown job type %q", job.Type)
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// MarshalData serializes DataParsed back into Data.
func (job *Job) MarshalData() error {
	if job.DataParsed == nil {
		return nil
	}
	data, err := json.Marshal(job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	job.Data = string(data)
	return nil
}

type JobImportArchiveData struct {
	ArchivePath string `json:"archive_path"`
	// RemoveArchive deletes the archive once the job finishes (uploads and
	// inbox drops are owned by the job).
	RemoveArchive bool              `json:"remove_archive"`
	Summary       *JobImportSummary `json:"summary,omitempty"`
}

type JobImportSummary struct {
	UnitsAttempted int   `json:"units_attempted"`
	UnitsSucceeded int   `json:"units_succeeded"`
	UnitsFailed    int   `json:"units_failed"`
	Anomalies      int   `json:"anomalies"`
	BookIDs        []int `json:"book_ids"`
}
