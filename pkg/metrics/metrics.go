package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ScansTotal   *prometheus.CounterVec
	ScanDuration *prometheus.HistogramVec

	ToolCallsTotal    *prometheus.CounterVec
	PlannerTurnsTotal *prometheus.CounterVec

	BulkScanRunsTotal *prometheus.CounterVec
	BulkScanRunning   prometheus.Gauge

	FrontierLinks  *prometheus.GaugeVec
	FrontierAssets prometheus.Gauge

	initOnce sync.Once
)

// Init registers all collectors with the default registry. It is safe to
// call more than once.
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

	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_total",
			Help: "Total number of page scan attempts.",
		},
		[]string{"trigger", "status", "error_type"}, // trigger: seed, tool, bulk
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Duration of page scans.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"trigger"},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Tool calls by name and outcome (approved, rejected, succeeded, failed).",
		},
		[]string{"tool", "outcome"},
	)

	PlannerTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_turns_total",
			Help: "Transcript turns produced from planner replies.",
		},
		[]string{"kind"},
	)

	BulkScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_scan_runs_total",
			Help: "Finished bulk scans by outcome (completed, stopped).",
		},
		[]string{"outcome"},
	)

	BulkScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bulk_scan_running",
			Help: "Number of bulk scans currently running.",
		},
	)

	FrontierLinks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frontier_links",
			Help: "Links in the active frontier by status.",
		},
		[]string{"status"},
	)

	FrontierAssets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frontier_assets",
			Help: "Assets in the active frontier.",
		},
	)
}
