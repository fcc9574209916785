package joblogs

import (
	"context"
	"runtime/debug"

	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

const maxDataValueLen = 1024

// JobLogger writes every message both to the process log and to the job's
// persisted log. Failing to persist is logged and otherwise ignored.
type JobLogger struct {
	ctx     context.Context
	jobID   int
	service *Service
	log     logger.Logger
}

func (svc *Service) NewJobLogger(ctx context.Context, jobID int, log logger.Logger) *JobLogger {
	return &JobLogger{
		ctx:     ctx,
		jobID:   jobID,
		service: svc,
		log:     log.Data(logger.Data{"job_id": jobID}),
	}
}

func (l *JobLogger) Info(msg string, data logger.Data) {
	l.log.Info(msg, data)
	l.persist(&models.JobLog{Level: models.JobLogLevelInfo, Message: msg}, data)
}

func (l *JobLogger) Warn(msg string, data logger.Data) {
	l.log.Warn(msg, data)
	l.persist(&models.JobLog{Level: models.JobLogLevelWarn, Message: msg}, data)
}

// Error records err with the current stack.
func (l *JobLogger) Error(msg string, err error, data logger.Data) {
	l.log.Err(err).Error(msg, data)
	stack := string(debug.Stack())
	data = withError(data, err)
	l.persist(&models.JobLog{Level: models.JobLogLevelError, Message: msg, StackTrace: &stack}, data)
}

// UnitFailed records an import unit that produced no book.
func (l *JobLogger) UnitFailed(unitPath, reason string) {
	data := logger.Data{"reason": reason}
	l.log.Warn("unit failed", logger.Data{"unit": unitPath, "reason": reason})
	l.persist(&models.JobLog{Level: models.JobLogLevelWarn, Message: "unit failed", UnitPath: &unitPath}, data)
}

// UnitAnomaly records an import unit that succeeded but borrowed a sidecar
// or cover that may belong to another book.
func (l *JobLogger) UnitAnomaly(unitPath, kind string) {
	data := logger.Data{"kind": kind}
	l.log.Info("unit anomaly", logger.Data{"unit": unitPath, "kind": kind})
	l.persist(&models.JobLog{Level: models.JobLogLevelInfo, Message: "unit anomaly", UnitPath: &unitPath}, data)
}

func (l *JobLogger) persist(entry *models.JobLog, data logger.Data) {
	entry.JobID = l.jobID
	entry.Data = encodeData(data)
	if err := l.service.CreateJobLog(l.ctx, entry); err != nil {
		l.log.Err(err).Warn("failed to persist job log")
	}
}

func withError(data logger.Data, err error) logger.Data {
	if err == nil {
		return data
	}
	out := make(logger.Data, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

// encodeData serializes data for the data column, shortening long string
// values. Empty data is stored as NULL.
func encodeData(data logger.Data) *string {
	if len(data) == 0 {
		return nil
	}
	short := make(logger.Data, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			v = truncateMiddle(s, maxDataValueLen)
		}
		short[k] = v
	}
	b, err := json.Marshal(short)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func truncateMiddle(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	half := (maxLen - 5) / 2
	return s[:half] + " ... " + s[len(s)-half:]
}
