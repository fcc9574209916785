package metrics

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookdrop"

var (
	registerOnce sync.Once

	unitsImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_units_total",
		Help:      "Total number of import units processed by outcome",
	}, []string{"outcome"})
	unitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "import_unit_duration_seconds",
		Help:      "Histogram of per-unit import durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	batches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_batches_total",
		Help:      "Total number of batch imports by outcome",
	}, []string{"outcome"})
	fieldSources = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "metadata_field_sources_total",
		Help:      "Which source won each merged metadata field",
	}, []string{"field", "source"})
	softFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_soft_failures_total",
		Help:      "Metadata or cover extractions that failed without failing the unit",
	}, []string{"source"})
	downloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloads_total",
		Help:      "Total number of book downloads by container type",
	}, []string{"container_type"})
	jobsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "jobs_in_progress",
		Help:      "Number of jobs currently being processed by type",
	}, []string{"type"})
)

// Register adds every collector to the default registry. It's idempotent.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(unitsImported, unitDuration, batches, fieldSources, softFailures, downloads, jobsGauge)
	})
}

// RegisterRoutes exposes the default registry at /metrics.
func RegisterRoutes(e *echo.Echo) {
	Register()
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Import helpers
func IncUnitSucceeded()                   { unitsImported.WithLabelValues("succeeded").Inc() }
func IncUnitFailed()                      { unitsImported.WithLabelValues("failed").Inc() }
func ObserveUnitDuration(d time.Duration) { unitDuration.Observe(d.Seconds()) }
func IncBatch(outcome string)             { batches.WithLabelValues(outcome).Inc() }
func IncFieldSource(field, source string) { fieldSources.WithLabelValues(field, source).Inc() }
func IncSoftFailure(source string)        { softFailures.WithLabelValues(source).Inc() }

func IncrementDownloads(containerType string) { downloads.WithLabelValues(containerType).Inc() }

// Job helpers
func JobStarted(jobType string)  { jobsGauge.WithLabelValues(jobType).Inc() }
func JobFinished(jobType string) { jobsGauge.WithLabelValues(jobType).Dec() }
