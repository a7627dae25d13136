package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and provider Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchd",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"entity", "status"},
	)

	SearchBranchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchd",
			Name:      "search_branch_duration_seconds",
			Help:      "Retrieval branch duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"branch"},
	)

	SearchBranchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchd",
			Name:      "search_branch_failures_total",
			Help:      "Retrieval branch failures by reason",
		},
		[]string{"branch", "reason"},
	)

	SemanticDowngradesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "searchd",
			Name:      "semantic_downgrades_total",
			Help:      "Permanent downgrades to keyword-only text search",
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchd",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchd",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	PlannerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchd",
			Name:      "planner_requests_total",
			Help:      "Total number of query planning calls",
		},
		[]string{"provider", "model", "status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and provider metrics explicitly
// (no init()), safe to call once from the composition root and from TestMain.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	searchMetricsRegistered = true

	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchBranchDuration,
		SearchBranchFailuresTotal,
		SemanticDowngradesTotal,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		PlannerRequestsTotal,
	)
}
