package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution Prometheus metrics.
var (
	ResolveRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medmatch",
			Name:      "resolve_requests_total",
			Help:      "Total number of resolution calls",
		},
		[]string{"mode", "status"}, // status: "matched" / "empty" / "error"
	)

	ResolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medmatch",
			Name:      "resolve_duration_seconds",
			Help:      "Resolution duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"mode"},
	)

	ResolveMatches = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medmatch",
			Name:      "resolve_matches",
			Help:      "Number of matches returned per resolution call",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
		[]string{"mode"},
	)

	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medmatch",
			Name:      "candidates_total",
			Help:      "Candidate spans sent to the matcher",
		},
		[]string{"mode"},
	)

	CandidateFaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medmatch",
			Name:      "candidate_faults_total",
			Help:      "Candidates that faulted during scoring and were skipped",
		},
		[]string{"mode"},
	)

	CatalogEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "medmatch",
			Name:      "catalog_entries",
			Help:      "Number of entries in the loaded catalog index",
		},
		[]string{"source"},
	)

	ResolveCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medmatch",
			Name:      "resolve_cache_total",
			Help:      "Resolution cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerResolveOnce sync.Once

// RegisterResolveMetrics registers resolution metrics with the default registry. Safe to call more than once.
func RegisterResolveMetrics() {
	registerResolveOnce.Do(func() {
		prometheus.MustRegister(
			ResolveRequestsTotal,
			ResolveDuration,
			ResolveMatches,
			CandidatesTotal,
			CandidateFaultsTotal,
			CatalogEntries,
			ResolveCacheTotal,
		)
	})
}
