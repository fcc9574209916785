package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/bookdrop/bookdrop/internal/testgen"
	"github.com/bookdrop/bookdrop/pkg/binder"
	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers(t *testing.T) {
	t.Parallel()
	db := testgen.NewTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	pending := newImportJob("/a.zip", models.JobStatusPending)
	failed := newImportJob("/b.zip", models.JobStatusFailed)
	for _, j := range []*models.Job{pending, failed} {
		require.NoError(t, svc.CreateJob(ctx, j))
	}

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/jobs"), db)

	get := func(target string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		return rr
	}
	list := func(target string) listJobsResponse {
		rr := get(target)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp listJobsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		return resp
	}

	resp := list("/jobs")
	assert.Equal(t, 2, resp.Total)

	resp = list("/jobs?active=true")
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, pending.ID, resp.Jobs[0].ID)

	resp = list("/jobs?status=failed")
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, failed.ID, resp.Jobs[0].ID)

	resp = list("/jobs?status=completed")
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Jobs)

	rr := get("/jobs?active=true&status=failed")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = get("/jobs?status=archived")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = get("/jobs/" + strconv.Itoa(failed.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	var job models.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusFailed, job.Status)

	rr = get("/jobs/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = get("/jobs/" + strconv.Itoa(failed.ID+100))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
