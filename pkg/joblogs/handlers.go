package joblogs

import (
	"net/http"
	"strconv"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	jobLogService *Service
	jobService    *jobs.Service
}

type listLogsResponse struct {
	Job  *models.Job      `json:"job"`
	Logs []*models.JobLog `json:"logs"`
}

// listLogs returns a job's log in insertion order. Clients poll with
// after_id set to the last id they saw.
func (h *handler) listLogs(c echo.Context) error {
	ctx := c.Request().Context()

	jobID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	params := ListJobLogsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	job, err := h.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{
		ID: &jobID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	logs, err := h.jobLogService.ListJobLogs(ctx, ListJobLogsOptions{
		JobID:    jobID,
		AfterID:  params.AfterID,
		Levels:   params.Level,
		UnitPath: params.Unit,
		Limit:    params.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listLogsResponse{Job: job, Logs: logs}))
}
