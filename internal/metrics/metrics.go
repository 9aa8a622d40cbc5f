// Package metrics exposes Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal   *prometheus.CounterVec
	rowsWrittenTotal     *prometheus.CounterVec
	chunkFailuresTotal   *prometheus.CounterVec
	pipelineStepsTotal   *prometheus.CounterVec
	stepDurationSeconds  *prometheus.HistogramVec
	hostWaitDelaySeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_fetch_attempts_total",
				Help: "Total remote fetch attempts, labeled by host and outcome.",
			},
			[]string{"host", "outcome"},
		)

		rowsWrittenTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_rows_written_total",
				Help: "Total rows written to the destination store, labeled by table.",
			},
			[]string{"table"},
		)

		chunkFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_chunk_failures_total",
				Help: "Total batch chunks that failed to write, labeled by table.",
			},
			[]string{"table"},
		)

		pipelineStepsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_pipeline_steps_total",
				Help: "Total pipeline steps executed, labeled by step and status.",
			},
			[]string{"step", "status"},
		)

		stepDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_step_duration_seconds",
				Help:    "Histogram of per-step wall time.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"step"},
		)

		hostWaitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_host_wait_delay_seconds",
				Help:    "Histogram of delays introduced by the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)
	})
}

// ObserveFetchAttempt records one fetch attempt against a host.
func ObserveFetchAttempt(host, outcome string) {
	if fetchAttemptsTotal == nil {
		return
	}
	fetchAttemptsTotal.WithLabelValues(host, outcome).Inc()
}

// AddRowsWritten records rows successfully written to a table.
func AddRowsWritten(table string, n int) {
	if rowsWrittenTotal == nil || n <= 0 {
		return
	}
	rowsWrittenTotal.WithLabelValues(table).Add(float64(n))
}

// ObserveChunkFailure records a failed write chunk for a table.
func ObserveChunkFailure(table string) {
	if chunkFailuresTotal == nil {
		return
	}
	chunkFailuresTotal.WithLabelValues(table).Inc()
}

// ObserveStep records the outcome and duration of a pipeline step.
func ObserveStep(step, status string, elapsed time.Duration) {
	if pipelineStepsTotal == nil {
		return
	}
	pipelineStepsTotal.WithLabelValues(step, status).Inc()
	stepDurationSeconds.WithLabelValues(step).Observe(elapsed.Seconds())
}

// ObserveHostWaitDelay records a delay imposed by the per-host limiter.
func ObserveHostWaitDelay(host string, d time.Duration) {
	if hostWaitDelaySeconds == nil {
		return
	}
	hostWaitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
