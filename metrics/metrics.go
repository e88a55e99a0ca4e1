// Package metrics exposes the engine's Prometheus collectors: node
// latency, progress-event throughput/drops, and per-task retry counts
// (§11.5). A nil *Metrics is always safe to call into, so callers that
// run without a registry configured need no nil checks of their own.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the workflow engine's operational signals.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry

	nodeRuns     *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	nodeErrors   *prometheus.CounterVec

	progressEmitted *prometheus.CounterVec
	progressDropped *prometheus.CounterVec

	taskAttempts *prometheus.CounterVec
	taskOutcomes *prometheus.CounterVec

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

// New builds a Metrics instance with its own registry, namespaced under
// namespace (e.g. "hectorflow"). Pass an empty namespace for no prefix.
func New(namespace string) *Metrics {
	m := &Metrics{namespace: namespace, registry: prometheus.NewRegistry()}

	m.nodeRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "node", Name: "runs_total",
		Help: "Total number of times a workflow node executed.",
	}, []string{"node"})

	m.nodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "node", Name: "duration_seconds",
		Help:    "Node execution duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"node"})

	m.nodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "node", Name: "errors_total",
		Help: "Total number of node executions that ended in an error.",
	}, []string{"node", "exception_type"})

	m.progressEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "progress", Name: "events_emitted_total",
		Help: "Total number of progress events successfully enqueued.",
	}, []string{"node"})

	m.progressDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "progress", Name: "events_dropped_total",
		Help: "Total number of progress events dropped due to a full buffer.",
	}, []string{"node"})

	m.taskAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "task", Name: "attempts_total",
		Help: "Total number of task execution attempts, including retries.",
	}, []string{"agent"})

	m.taskOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "task", Name: "outcomes_total",
		Help: "Total number of settled tasks by final status.",
	}, []string{"agent", "status"})

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "run", Name: "total",
		Help: "Total number of workflow runs by terminal processing_status.",
	}, []string{"processing_status"})

	m.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "run", Name: "duration_seconds",
		Help:    "End-to-end run duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"processing_status"})

	m.registry.MustRegister(
		m.nodeRuns, m.nodeDuration, m.nodeErrors,
		m.progressEmitted, m.progressDropped,
		m.taskAttempts, m.taskOutcomes,
		m.runsTotal, m.runDuration,
	)
	return m
}

// RecordNode records one node execution's outcome and duration.
func (m *Metrics) RecordNode(node string, duration time.Duration, exceptionType string) {
	if m == nil {
		return
	}
	m.nodeRuns.WithLabelValues(node).Inc()
	m.nodeDuration.WithLabelValues(node).Observe(duration.Seconds())
	if exceptionType != "" {
		m.nodeErrors.WithLabelValues(node, exceptionType).Inc()
	}
}

// RecordProgressEmitted records one successfully enqueued progress event.
func (m *Metrics) RecordProgressEmitted(node string) {
	if m == nil {
		return
	}
	m.progressEmitted.WithLabelValues(node).Inc()
}

// RecordProgressDropped records one progress event dropped by backpressure.
func (m *Metrics) RecordProgressDropped(node string) {
	if m == nil {
		return
	}
	m.progressDropped.WithLabelValues(node).Inc()
}

// RecordTaskAttempt records one task execution attempt (including retries).
func (m *Metrics) RecordTaskAttempt(agentName string) {
	if m == nil {
		return
	}
	m.taskAttempts.WithLabelValues(agentName).Inc()
}

// RecordTaskOutcome records a task's final settled status.
func (m *Metrics) RecordTaskOutcome(agentName, status string) {
	if m == nil {
		return
	}
	m.taskOutcomes.WithLabelValues(agentName, status).Inc()
}

// RecordRun records one completed end-to-end run.
func (m *Metrics) RecordRun(processingStatus string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(processingStatus).Inc()
	m.runDuration.WithLabelValues(processingStatus).Observe(duration.Seconds())
}

// Handler exposes the collectors for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
