// Package metrics provides Prometheus metrics for the CareFund backend.
// All metrics use the "carefund" namespace and are registered with the default
// registry via promauto, so they are scraped on /metrics without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carefund"

var (
	// HTTPRequestsTotal counts requests by chi route pattern, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDurationSeconds tracks handler latency by route.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// AssessmentsTotal counts pipeline runs.
	// stage: risk | finance | full; outcome: success | invalid | failed
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "runs_total",
			Help:      "Total number of assessment pipeline runs by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)

	// EnrichmentsTotal counts narrative enrichment results.
	// kind: risk | finance | prevention; outcome: ok | degraded
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "narrative",
			Name:      "enrichments_total",
			Help:      "Total number of narrative enrichments by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// EnvironmentLookupsTotal counts environment readings by where the AQI came from.
	// source: live | estimated | cache
	EnvironmentLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "environment",
			Name:      "lookups_total",
			Help:      "Total number of environment lookups by AQI source.",
		},
		[]string{"source"},
	)

	// ArchiveJobsTotal counts background archive jobs by final outcome.
	// outcome: saved | failed | dropped
	ArchiveJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "archive_jobs_total",
			Help:      "Total number of archive jobs by outcome.",
		},
		[]string{"outcome"},
	)
)

// Outcome maps a degraded flag onto the enrichment outcome label.
func Outcome(degraded bool) string {
	if degraded {
		return "degraded"
	}
	return "ok"
}
