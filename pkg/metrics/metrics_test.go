package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(unitsImported.WithLabelValues("failed"))
	IncUnitFailed()
	assert.Equal(t, before+1, testutil.ToFloat64(unitsImported.WithLabelValues("failed")))

	before = testutil.ToFloat64(softFailures.WithLabelValues("pdf_text"))
	IncSoftFailure("pdf_text")
	assert.Equal(t, before+1, testutil.ToFloat64(softFailures.WithLabelValues("pdf_text")))

	before = testutil.ToFloat64(downloads.WithLabelValues("epub"))
	IncrementDownloads("epub")
	assert.Equal(t, before+1, testutil.ToFloat64(downloads.WithLabelValues("epub")))

	JobStarted("import_archive")
	JobFinished("import_archive")
	assert.Equal(t, float64(0), testutil.ToFloat64(jobsGauge.WithLabelValues("import_archive")))
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e)
	// Registering twice must not panic.
	Register()

	IncBatch("completed")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bookdrop_import_batches_total")
}
