// Copyright 2025 Certen Protocol
//
// Package metrics defines the relay's Prometheus instrumentation, grounded
// on the prometheus.NewCounterVec/GaugeVec package-level var idiom used
// throughout the retrieved corpus.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsByStatus reports the current count of jobs in each job_status,
	// labeled by job_type. The Dispatcher updates it on each status
	// transition its run loop persists.
	JobsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_jobs_by_status",
			Help: "Current number of jobs observed in each status.",
		},
		[]string{"job_type", "status"},
	)

	// PoolOccupancy reports how many of each bounded pool's slots are
	// currently held, labeled by pool name (rpc_fetch_pool, pie_pool,
	// jobs_in_progress).
	PoolOccupancy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_pool_occupancy",
			Help: "Number of slots currently held in a bounded concurrency pool.",
		},
		[]string{"pool"},
	)

	// BroadcastLatencySeconds measures the time from the Broadcast
	// Serializer starting a job's submission to its transaction being
	// mined and recorded as PROOF_VERIFY_CALLED_ONCHAIN.
	BroadcastLatencySeconds = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "relay_broadcast_latency_seconds",
			Help:       "Seconds from the start of a settlement submission to transaction confirmation.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"job_type"},
	)

	// JobRetriesTotal counts every retryable failure recorded against a
	// job, labeled by job_type and the relayerr kind that triggered it.
	JobRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_job_retries_total",
			Help: "Total number of retryable job failures recorded.",
		},
		[]string{"job_type", "error_kind"},
	)

	// JobsFailedTotal counts every job that reached ERROR, labeled by
	// job_type and the relayerr kind of its final failure.
	JobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_jobs_failed_total",
			Help: "Total number of jobs that reached ERROR status.",
		},
		[]string{"job_type", "error_kind"},
	)

	allCollectors = []prometheus.Collector{
		JobsByStatus,
		PoolOccupancy,
		BroadcastLatencySeconds,
		JobRetriesTotal,
		JobsFailedTotal,
	}
)

// MustRegister registers every relay collector against the default
// Prometheus registry. Call once during daemon startup.
func MustRegister() {
	prometheus.MustRegister(allCollectors...)
}

// Handler returns the HTTP handler to mount at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
