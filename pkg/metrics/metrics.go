// Package metrics provides Prometheus instrumentation for refinery.
//
// # Overview
//
// The package registers a fixed set of collectors on the default registry:
//   - operation counts and latencies per preprocessing operation
//   - rows processed per operation
//   - live session count and history depth
//   - SMOTE fallbacks
//
// # Basic Usage
//
//	timer := metrics.NewTimer("scale")
//	out, meta, err := scaling.Scale(table, params)
//	metrics.ObserveOperation("scale", timer.Stop(), err)
//
// Collectors are safe for concurrent use.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "refinery"

var (
	// OperationsTotal counts engine operations.
	// Labels: operation, status (success/error)
	//
	// Example:
	//	metrics.OperationsTotal.WithLabelValues("handle_missing_values", "success").Inc()
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of preprocessing operations",
		},
		[]string{"operation", "status"},
	)

	// OperationDuration tracks operation latency in seconds.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Preprocessing operation latency in seconds",
			Buckets: []float64{
				0.0001, // 100μs - Metadata reads
				0.001,  // 1ms - Small tables
				0.01,   // 10ms
				0.1,    // 100ms - Large tables
				1,      // 1s - SMOTE, wide one-hot
				10,     // 10s
			},
		},
		[]string{"operation"},
	)

	// RowsProcessed counts the input rows handed to each operation.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Total number of rows processed by preprocessing operations",
		},
		[]string{"operation"},
	)

	// ActiveSessions tracks live dataset sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live dataset sessions",
		},
	)

	// HistoryDepth tracks the undo/redo depth of the most recently changed session.
	// Labels: kind (undo/redo)
	HistoryDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_depth",
			Help:      "Undo and redo stack depth of the last mutated session",
		},
		[]string{"kind"},
	)

	// SMOTEFallbacks counts SMOTE requests served by random oversampling
	SMOTEFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "smote_fallbacks_total",
			Help:      "SMOTE requests that fell back to random oversampling",
		},
	)
)

// ObserveOperation records the outcome and latency of one operation.
func ObserveOperation(operation string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveHistory publishes the history depth of a session.
func ObserveHistory(undo, redo int) {
	HistoryDepth.WithLabelValues("undo").Set(float64(undo))
	HistoryDepth.WithLabelValues("redo").Set(float64(redo))
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// LatencyTracker keeps the most recent latencies of an operation for
// percentile reporting.
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker holding at most maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		l.values = l.values[1:]
	}
	l.values = append(l.values, d)
}

// Count returns the number of retained samples.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// Percentile returns the p-th percentile (0-100) of the retained samples by
// nearest rank.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.Lock()
	sorted := make([]time.Duration, len(l.values))
	copy(sorted, l.values)
	l.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	index := int(float64(len(sorted)) * p / 100)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// WriteTextfile writes every registered collector to path in the Prometheus
// text format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
