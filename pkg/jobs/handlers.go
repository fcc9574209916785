package jobs

import (
	"net/http"
	"strconv"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type listJobsResponse struct {
	Jobs  []*models.Job `json:"jobs"`
	Total int           `json:"total"`
}

type handler struct {
	jobService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return errcodes.NotFound("Job")
	}

	job, err := h.jobService.RetrieveJob(c.Request().Context(), RetrieveJobOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

func (h *handler) list(c echo.Context) error {
	params := ListJobsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	jobs, total, err := h.jobService.ListJobsWithTotal(c.Request().Context(), ListJobsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Statuses: params.statuses(),
		Type:     params.Type,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}

	return errors.WithStack(c.JSON(http.StatusOK, listJobsResponse{Jobs: jobs, Total: total}))
}
