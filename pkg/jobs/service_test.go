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
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImportJob(path, status string) *models.Job {
	return &models.Job{
		Type:       models.JobTypeImportArchive,
		Status:     status,
		DataParsed: &models.JobImportArchiveData{ArchivePath: path},
	}
}

func TestCreateAndRetrieveJob(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))
	ctx := context.Background()

	job := newImportJob("/inbox/batch.zip", models.JobStatusPending)
	require.NoError(t, svc.CreateJob(ctx, job))
	require.NotZero(t, job.ID)

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	data, ok := got.DataParsed.(*models.JobImportArchiveData)
	require.True(t, ok)
	assert.Equal(t, "/inbox/batch.zip", data.ArchivePath)
	assert.Nil(t, data.Summary)

	_, err = svc.RetrieveJob(ctx, RetrieveJobOptions{ID: pointerutil.Int(job.ID + 100)})
	assert.ErrorIs(t, err, errcodes.NotFound("Job"))
}

func TestListJobs_Filters(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))
	ctx := context.Background()

	pending := newImportJob("/a.zip", models.JobStatusPending)
	done := newImportJob("/b.zip", models.JobStatusCompleted)
	claimed := newImportJob("/c.zip", models.JobStatusInProgress)
	claimed.ProcessID = pointerutil.String("abc")
	for _, j := range []*models.Job{pending, done, claimed} {
		require.NoError(t, svc.CreateJob(ctx, j))
	}

	jobs, total, err := svc.ListJobsWithTotal(ctx, ListJobsOptions{
		Statuses: []string{models.JobStatusPending, models.JobStatusInProgress},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, jobs, 2)
	assert.Equal(t, pending.ID, jobs[0].ID)

	jobs, err = svc.ListJobs(ctx, ListJobsOptions{Type: pointerutil.String(models.JobTypeImportArchive), Limit: pointerutil.Int(1)})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, pending.ID, jobs[0].ID)
}

func TestNextJob(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))
	ctx := context.Background()

	next, err := svc.NextJob(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, next)

	mine := newImportJob("/mine.zip", models.JobStatusInProgress)
	mine.ProcessID = pointerutil.String("abc")
	done := newImportJob("/done.zip", models.JobStatusCompleted)
	orphaned := newImportJob("/orphaned.zip", models.JobStatusInProgress)
	orphaned.ProcessID = pointerutil.String("dead")
	pending := newImportJob("/pending.zip", models.JobStatusPending)
	for _, j := range []*models.Job{mine, done, orphaned, pending} {
		require.NoError(t, svc.CreateJob(ctx, j))
	}

	next, err = svc.NextJob(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, orphaned.ID, next.ID)
	data, ok := next.DataParsed.(*models.JobImportArchiveData)
	require.True(t, ok)
	assert.Equal(t, "/orphaned.zip", data.ArchivePath)

	next, err = svc.NextJob(ctx, "dead")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, mine.ID, next.ID)
}

func TestHasActiveImportForArchive(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))
	ctx := context.Background()

	active, err := svc.HasActiveImportForArchive(ctx, "/inbox/a.zip")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, svc.CreateJob(ctx, newImportJob("/inbox/a.zip", models.JobStatusPending)))
	require.NoError(t, svc.CreateJob(ctx, newImportJob("/inbox/b.zip", models.JobStatusCompleted)))

	active, err = svc.HasActiveImportForArchive(ctx, "/inbox/a.zip")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = svc.HasActiveImportForArchive(ctx, "/inbox/b.zip")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestUpdateJob(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))
	ctx := context.Background()

	job := newImportJob("/a.zip", models.JobStatusPending)
	require.NoError(t, svc.CreateJob(ctx, job))

	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.DataParsed = &models.JobImportArchiveData{
		ArchivePath: "/a.zip",
		Summary:     &models.JobImportSummary{UnitsAttempted: 3, UnitsSucceeded: 2, UnitsFailed: 1, BookIDs: []int{1, 2}},
	}
	require.NoError(t, job.MarshalData())
	require.NoError(t, svc.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "progress", "data"}}))

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	data := got.DataParsed.(*models.JobImportArchiveData)
	require.NotNil(t, data.Summary)
	assert.Equal(t, []int{1, 2}, data.Summary.BookIDs)

	missing := &models.Job{ID: job.ID + 50, Status: models.JobStatusFailed}
	err = svc.UpdateJob(ctx, missing, UpdateJobOptions{Columns: []string{"status"}})
	assert.ErrorIs(t, err, errcodes.NotFound("Job"))
}

func TestRetrieveHandler_IncludesJobData(t *testing.T) {
	t.Parallel()
	db := testgen.NewTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/jobs"), db)

	job := newImportJob("/a.zip", models.JobStatusPending)
	require.NoError(t, svc.CreateJob(ctx, job))

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/"+strconv.Itoa(job.ID), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
		Data   struct {
			ArchivePath string `json:"archive_path"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "/a.zip", got.Data.ArchivePath)

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs?status=pending", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/9999", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEnqueueArchiveImport(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))
	ctx := context.Background()

	job, err := svc.EnqueueArchiveImport(ctx, "/uploads/x.zip", true)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	data := got.DataParsed.(*models.JobImportArchiveData)
	assert.Equal(t, "/uploads/x.zip", data.ArchivePath)
	assert.True(t, data.RemoveArchive)
}

func TestClaimJob(t *testing.T) {
	t.Parallel()
	svc := NewService(testgen.NewTestDB(t))
	ctx := context.Background()

	job := newImportJob("/claim.zip", models.JobStatusPending)
	require.NoError(t, svc.CreateJob(ctx, job))

	claimed, err := svc.ClaimJob(ctx, job, "first")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, models.JobStatusInProgress, job.Status)

	// A second claim by the same process is refused.
	stale := *job
	claimed, err = svc.ClaimJob(ctx, &stale, "first")
	require.NoError(t, err)
	assert.False(t, claimed)

	// A different process can take over an in-progress job.
	claimed, err = svc.ClaimJob(ctx, &stale, "second")
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: pointerutil.Int(job.ID)})
	require.NoError(t, err)
	require.NotNil(t, got.ProcessID)
	assert.Equal(t, "second", *got.ProcessID)

	job.Status = models.JobStatusCompleted
	require.NoError(t, svc.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status"}}))
	claimed, err = svc.ClaimJob(ctx, job, "third")
	require.NoError(t, err)
	assert.False(t, claimed)
}
