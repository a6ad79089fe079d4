package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	StageRunsTotal      *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	CaptureDuration     *prometheus.HistogramVec
	RecoveryItemsTotal  *prometheus.CounterVec
	SinkWritesTotal     *prometheus.CounterVec
	LastSuccessTime     prometheus.Gauge

	initOnce sync.Once
)

// Init registers every collector on the default registry. It is safe to call
// more than once.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldwatch_stage_runs_total",
			Help: "Total number of pipeline stage executions.",
		},
		[]string{"stage", "status"}, // status: success, failure
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goldwatch_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	CaptureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goldwatch_capture_duration_seconds",
			Help:    "Duration of a single target capture, settle delay included.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"target"},
	)

	RecoveryItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldwatch_recovery_items_total",
			Help: "Text recovery attempts per target.",
		},
		[]string{"target", "status"},
	)

	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldwatch_sink_writes_total",
			Help: "Record writes per sink.",
		},
		[]string{"sink", "status"},
	)

	LastSuccessTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "goldwatch_last_success_timestamp_seconds",
			Help: "Unix time of the last fully successful pipeline run.",
		},
	)
}

// Push sends the default registry to a Prometheus Pushgateway. Batch
// invocations of the CLI exit before a scrape could happen.
func Push(url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
