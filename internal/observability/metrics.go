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
	// Ingestion metrics
	SeriesFetched      *prometheus.CounterVec
	ObservationsStored *prometheus.CounterVec
	ProviderLatency    *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	StageDuration     *prometheus.HistogramVec
	PanelRows         prometheus.Gauge
	FeaturesAccepted  prometheus.Gauge
	TestAUC           prometheus.Gauge
	ReportsGenerated  prometheus.Counter

	// Scheduler metrics
	ScheduledRuns    *prometheus.CounterVec
	WebsocketClients prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "macro_risk_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		SeriesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "series_fetched_total",
			Help:      "Total number of series fetch attempts by source and status",
		}, []string{"source", "status"}),
		ObservationsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_stored_total",
			Help:      "Total number of observations stored by series",
		}, []string{"series"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "provider_latency_seconds",
			Help:      "Provider fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		// Pipeline metrics
		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"status"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		PanelRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "panel_rows",
			Help:      "Rows in the aligned panel of the last run",
		}),
		FeaturesAccepted: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "features_accepted",
			Help:      "Features accepted by correlation filtering in the last run",
		}),
		TestAUC: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "test_auc",
			Help:      "Out-of-sample AUC of the last run, NaN when undefined",
		}),
		ReportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Scheduler metrics
		ScheduledRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Triggered runs by outcome (completed, failed, skipped)",
		}, []string{"outcome"}),
		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "websocket_clients",
			Help:      "Connected run event subscribers",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordSeriesFetch records a provider fetch attempt.
func RecordSeriesFetch(source, status string, seconds float64) {
	DefaultMetrics.SeriesFetched.WithLabelValues(source, status).Inc()
	DefaultMetrics.ProviderLatency.WithLabelValues(source).Observe(seconds)
}

// RecordObservationsStored adds to the stored observations counter.
func RecordObservationsStored(series string, n int) {
	DefaultMetrics.ObservationsStored.WithLabelValues(series).Add(float64(n))
}

// RecordIngestionSuccess sets the last successful ingestion timestamp.
func RecordIngestionSuccess(unix int64) {
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unix))
}

// RecordStage records the duration of one pipeline stage.
func RecordStage(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordRunOutcome updates the gauges describing the last completed run.
func RecordRunOutcome(rows, features int, testAUC float64, finishedUnix int64) {
	DefaultMetrics.PanelRows.Set(float64(rows))
	DefaultMetrics.FeaturesAccepted.Set(float64(features))
	DefaultMetrics.TestAUC.Set(testAUC)
	DefaultMetrics.LastSuccessfulPipeline.Set(float64(finishedUnix))
}

// RecordReportGenerated increments the reports counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordScheduledRun counts a triggered run by outcome.
func RecordScheduledRun(outcome string) {
	DefaultMetrics.ScheduledRuns.WithLabelValues(outcome).Inc()
}

// SetWebsocketClients sets the number of connected event subscribers.
func SetWebsocketClients(n int) {
	DefaultMetrics.WebsocketClients.Set(float64(n))
}
