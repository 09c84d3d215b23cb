package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertx_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alertx_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	reportSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertx_report_submissions_total",
		Help: "Count of report submissions by result",
	}, []string{"result"})

	pipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alertx_pipeline_stage_duration_seconds",
		Help:    "Duration of ingestion pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertx_broadcasts_total",
		Help: "Count of live-update broadcasts by event",
	}, []string{"event"})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alertx_ws_clients",
		Help: "Number of connected live-update clients",
	})

	reportsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alertx_reports_by_status",
		Help: "Number of stored reports per lifecycle status",
	}, []string{"status"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSubmission records a report submission attempt with a result label.
func ObserveSubmission(result string) {
	reportSubmissions.WithLabelValues(result).Inc()
}

// ObservePipelineStage records the duration of one ingestion pipeline stage.
func ObservePipelineStage(stage string, duration time.Duration) {
	pipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveBroadcast increments the broadcast counter for the given event.
func ObserveBroadcast(event string) {
	broadcasts.WithLabelValues(event).Inc()
}

// IncrementClients increments the connected websocket client gauge.
func IncrementClients() {
	wsClients.Inc()
}

// DecrementClients decrements the connected websocket client gauge.
func DecrementClients() {
	wsClients.Dec()
}

// SetReportsByStatus sets the per-status report gauge.
func SetReportsByStatus(status string, count int) {
	if count < 0 {
		count = 0
	}
	reportsByStatus.WithLabelValues(status).Set(float64(count))
}
