package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal tracks completed analysis runs by outcome.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hvacsight_analyses_total",
			Help: "Total number of analysis runs by status",
		},
		[]string{"status"},
	)

	// StageDuration tracks per-stage pipeline latency.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hvacsight_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)

	// CacheHits counts result-cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hvacsight_cache_hits_total",
			Help: "Analysis result cache hits",
		},
	)

	// CacheMisses counts result-cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hvacsight_cache_misses_total",
			Help: "Analysis result cache misses",
		},
	)

	// AppInfo provides static information about the application.
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hvacsight_app_info",
			Help: "Application information (always 1)",
		},
	)

	// AppStartTime records when the application started.
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hvacsight_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppInfo.Set(1)
	AppStartTime.SetToCurrentTime()
}

// RecordStage records one pipeline stage execution.
func RecordStage(stage string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// RecordAnalysis records one completed analysis run.
func RecordAnalysis(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AnalysesTotal.WithLabelValues(status).Inc()
}
