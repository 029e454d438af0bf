// Package admin implements the C10 CLI/admin HTTP surface (spec §6):
// /health, /metrics, /api/config, /api/sync/trigger, /api/webhook/h, and
// /api/events. The teacher has no HTTP router of its own, so the chi router +
// go-chi/cors shape and the Prometheus wiring follow the retrieval pack's
// kubernaut REST service (see DESIGN.md).
package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors named in spec §6.
type Metrics struct {
	SyncRunsTotal      *prometheus.CounterVec
	SyncDurationSecs   prometheus.Histogram
	HAPILatencySecs    *prometheus.HistogramVec
	VAPILatencySecs    *prometheus.HistogramVec
	ProjectsProcessed  prometheus.Gauge
	IssuesSynced       prometheus.Gauge
	MemoryUsageBytes   *prometheus.GaugeVec
}

// NewMetrics registers all collectors on a fresh registry, prefixed
// "hvbsync_" to match spec §6's "service-prefix" note.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hvbsync_sync_runs_total",
			Help: "Total number of sync cycles, by outcome.",
		}, []string{"status"}),
		SyncDurationSecs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hvbsync_sync_duration_seconds",
			Help:    "Duration of a full sync cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		HAPILatencySecs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hvbsync_h_api_latency_seconds",
			Help:    "Latency of calls to System H, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		VAPILatencySecs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hvbsync_v_api_latency_seconds",
			Help:    "Latency of calls to System V, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		ProjectsProcessed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hvbsync_projects_processed",
			Help: "Number of project cycles run since process start.",
		}),
		IssuesSynced: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hvbsync_issues_synced",
			Help: "Number of per-issue syncs that succeeded since process start.",
		}),
		MemoryUsageBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hvbsync_memory_usage_bytes",
			Help: "Process memory usage, by type.",
		}, []string{"type"}),
	}
}
