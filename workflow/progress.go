package workflow

import (
	"log/slog"
	"sync/atomic"

	"github.com/kadirpekel/hectorflow/metrics"
)

// ProgressBus is a multi-producer, single-consumer bounded stream of
// ProgressEvents. Emit never blocks past the buffer: whenever the
// buffer is full (the consumer is lagging or gone), the event is
// dropped and the run continues (§5 Backpressure).
//
// Emit is called concurrently by every in-flight task goroutine during
// the executor node's fan-out (§5), so dropped is an atomic counter
// rather than a plain int.
type ProgressBus struct {
	events  chan ProgressEvent
	log     *slog.Logger
	metrics *metrics.Metrics
	dropped atomic.Int64
}

// NewProgressBus builds a bus with the given capacity (>= 2x the
// expected event count for a run is the engine's recommended default).
// m may be nil when no Prometheus registry is configured.
func NewProgressBus(capacity int, log *slog.Logger, m *metrics.Metrics) *ProgressBus {
	if capacity <= 0 {
		capacity = 64
	}
	return &ProgressBus{
		events:  make(chan ProgressEvent, capacity),
		log:     log,
		metrics: m,
	}
}

// Emit enqueues an event, or drops it if the buffer is full. Emit
// itself never blocks the caller.
func (b *ProgressBus) Emit(ev ProgressEvent) {
	select {
	case b.events <- ev:
		b.metrics.RecordProgressEmitted(ev.Node)
	default:
		total := b.dropped.Add(1)
		b.metrics.RecordProgressDropped(ev.Node)
		if b.log != nil {
			b.log.Warn("progress event dropped: consumer lagging or gone", "node", ev.Node, "dropped_total", total)
		}
	}
}

// Events returns the consumer-facing read channel.
func (b *ProgressBus) Events() <-chan ProgressEvent {
	return b.events
}

// Close signals no further events will be emitted.
func (b *ProgressBus) Close() {
	close(b.events)
}

// Dropped reports how many events were discarded due to backpressure.
func (b *ProgressBus) Dropped() int {
	return int(b.dropped.Load())
}

// TaskProgressPercentage implements the §4.2 formula: each task
// contributes 100 if completed, 50 if in_progress/retrying, 0
// otherwise; the sum is normalized over N_tasks*100 and clamped.
func TaskProgressPercentage(tasks []TaskView) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tasks {
		switch t.Status {
		case string(TaskCompleted):
			sum += 100
		case string(TaskInProgress), string(TaskRetrying):
			sum += 50
		}
	}
	pct := sum / (float64(len(tasks)) * 100) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
