package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	JobLogLevelInfo  = "info"
	JobLogLevelWarn  = "warn"
	JobLogLevelError = "error"
)

// JobLog is one persisted line of a job's log. Lines about a single import
// unit carry its path relative to the archive root.
type JobLog struct {
	bun.BaseModel `bun:"table:job_logs,alias:jl"`

	ID         int       `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	JobID      int       `bun:",nullzero" json:"job_id"`
	Level      string    `bun:",nullzero" json:"level"`
	Message    string    `bun:",nullzero" json:"message"`
	UnitPath   *string   `json:"unit_path,omitempty"`
	Data       *string   `json:"data,omitempty"`
	StackTrace *string   `json:"stack_trace,omitempty"`
}
