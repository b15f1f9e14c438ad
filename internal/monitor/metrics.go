package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the file manager.
type Metrics struct {
	Registry *prometheus.Registry

	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	ExecutionErrors   *prometheus.CounterVec
	ActiveExecutions  prometheus.Gauge
	OutputSizeBytes   prometheus.Histogram
	OutputTruncated   prometheus.Counter
	FileOperations    *prometheus.CounterVec
	KnownFiles        prometheus.Gauge
	RequestsInFlight  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Name:      "executions_total",
				Help:      "Total number of file executions by extension, action and status.",
			},
			[]string{"extension", "action", "status"},
		),

		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nexus",
				Name:      "execution_duration_seconds",
				Help:      "Duration of compile/run commands in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"extension"},
		),

		ExecutionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Name:      "execution_errors_total",
				Help:      "Total execution errors by type.",
			},
			[]string{"type"},
		),

		ActiveExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nexus",
				Name:      "active_executions",
				Help:      "Number of currently running commands.",
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nexus",
				Name:      "output_size_bytes",
				Help:      "Size of captured execution output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 7),
			},
		),

		OutputTruncated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Name:      "output_truncated_total",
				Help:      "Executions whose output exceeded the capture limit.",
			},
		),

		FileOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "files",
				Name:      "operations_total",
				Help:      "File operations by operation and result.",
			},
			[]string{"op", "result"},
		),

		KnownFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nexus",
				Subsystem: "files",
				Name:      "known",
				Help:      "Number of entries in the known file list.",
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nexus",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),
	}

	reg.MustRegister(
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.ExecutionErrors,
		m.ActiveExecutions,
		m.OutputSizeBytes,
		m.OutputTruncated,
		m.FileOperations,
		m.KnownFiles,
		m.RequestsInFlight,
	)

	return m
}

// RecordExecution records metrics for a completed execution.
func (m *Metrics) RecordExecution(extension, action, status string, durationSec float64) {
	m.ExecutionsTotal.WithLabelValues(extension, action, status).Inc()
	m.ExecutionDuration.WithLabelValues(extension).Observe(durationSec)
}

// RecordOutput records the size of captured output.
func (m *Metrics) RecordOutput(size int, truncated bool) {
	m.OutputSizeBytes.Observe(float64(size))
	if truncated {
		m.OutputTruncated.Inc()
	}
}

// RecordError records an execution error by type.
func (m *Metrics) RecordError(errType string) {
	m.ExecutionErrors.WithLabelValues(errType).Inc()
}

// RecordFileOp counts a file operation as ok or error.
func (m *Metrics) RecordFileOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FileOperations.WithLabelValues(op, result).Inc()
}
