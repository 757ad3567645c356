// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Collection metrics
	RowsCollected  *prometheus.CounterVec
	IssuesRecorded *prometheus.CounterVec

	// Provider metrics
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Export metrics
	ExportJobsTotal *prometheus.CounterVec
	RowsExported    *prometheus.CounterVec
	ExportDuration  prometheus.Histogram

	// Health metrics
	LastSuccessfulRun    prometheus.Gauge
	LastSuccessfulExport prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "krx_market_lab"
	}

	return &Metrics{
		// Collection metrics
		RowsCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "rows_collected_total",
			Help:      "Total number of rows collected by dataset",
		}, []string{"dataset"}),
		IssuesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "issues_recorded_total",
			Help:      "Total number of data-quality issues by severity",
		}, []string{"severity"}),

		// Provider metrics
		ProviderRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total number of source API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_latency_seconds",
			Help:      "Source API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of collection runs by final status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Collection run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Export metrics
		ExportJobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "jobs_total",
			Help:      "Total number of export jobs by final status",
		}, []string{"status"}),
		RowsExported: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rows_exported_total",
			Help:      "Total number of rows exported by dataset",
		}, []string{"dataset"}),
		ExportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Export job duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last run that finished SUCCESS",
		}),
		LastSuccessfulExport: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_export_timestamp",
			Help:      "Unix timestamp of the last export job that finished SUCCEEDED",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRowsCollected adds to the collected-rows counter for one dataset.
func RecordRowsCollected(dataset string, n int) {
	DefaultMetrics.RowsCollected.WithLabelValues(dataset).Add(float64(n))
}

// RecordIssue increments the issue counter for one severity.
func RecordIssue(severity string) {
	DefaultMetrics.IssuesRecorded.WithLabelValues(severity).Inc()
}

// RecordProviderRequest records the outcome and latency of one API request.
func RecordProviderRequest(endpoint, outcome string, seconds float64) {
	DefaultMetrics.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	DefaultMetrics.ProviderLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordRun records a finished collection run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordExportJob records a finished export job.
func RecordExportJob(status string, durationSeconds float64) {
	DefaultMetrics.ExportJobsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ExportDuration.Observe(durationSeconds)
}

// RecordRowsExported adds to the exported-rows counter for one dataset.
func RecordRowsExported(dataset string, n int) {
	DefaultMetrics.RowsExported.WithLabelValues(dataset).Add(float64(n))
}
