package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordNodeIncrementsRunsAndObservesDuration(t *testing.T) {
	m := New("test")
	m.RecordNode("reflection", 50*time.Millisecond, "")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.nodeRuns.WithLabelValues("reflection")))
}

func TestRecordNodeWithExceptionTypeIncrementsNodeErrors(t *testing.T) {
	m := New("test")
	m.RecordNode("executor", time.Second, "ExecutionError")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.nodeErrors.WithLabelValues("executor", "ExecutionError")))
}

func TestRecordProgressEmittedAndDropped(t *testing.T) {
	m := New("test")
	m.RecordProgressEmitted("executor")
	m.RecordProgressEmitted("executor")
	m.RecordProgressDropped("executor")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.progressEmitted.WithLabelValues("executor")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.progressDropped.WithLabelValues("executor")))
}

func TestRecordTaskAttemptAndOutcome(t *testing.T) {
	m := New("test")
	m.RecordTaskAttempt("billing-agent")
	m.RecordTaskOutcome("billing-agent", "completed")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.taskAttempts.WithLabelValues("billing-agent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.taskOutcomes.WithLabelValues("billing-agent", "completed")))
}

func TestRecordRunIncrementsRunsTotal(t *testing.T) {
	m := New("test")
	m.RecordRun("completed", 2*time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))
}

func TestNilMetricsIsSafeToCallIntoEverywhere(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordNode("n", time.Second, "Kind")
		m.RecordProgressEmitted("n")
		m.RecordProgressDropped("n")
		m.RecordTaskAttempt("a")
		m.RecordTaskOutcome("a", "failed")
		m.RecordRun("failed", time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestNilMetricsHandlerReturnsServiceUnavailable(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	m := New("test")
	m.RecordRun("completed", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_run_total")
}
