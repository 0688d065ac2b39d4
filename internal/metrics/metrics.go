package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpilot_queries_processed_total",
			Help: "Total number of natural-language queries processed",
		},
		[]string{"role", "status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_pipeline_duration_seconds",
			Help:    "End-to-end query pipeline duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpilot_validation_failures_total",
			Help: "Total number of generated statements rejected by the validator",
		},
	)

	LimitInjections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpilot_limit_injections_total",
			Help: "Total number of statements that had a default LIMIT appended",
		},
	)

	// NLU capability metrics
	NLURequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpilot_nlu_requests_total",
			Help: "Total number of requests to the NLU capability",
		},
		[]string{"operation", "status"},
	)

	NLULatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_nlu_latency_seconds",
			Help:    "NLU capability request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SuggestionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpilot_suggestion_fallbacks_total",
			Help: "Total number of times default next-step suggestions were used",
		},
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlpilot_sessions_active",
			Help: "Number of active warehouse sessions",
		},
	)

	SchemaCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpilot_schema_cache_hits_total",
			Help: "Total number of table schema cache hits",
		},
	)

	SchemaCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpilot_schema_cache_misses_total",
			Help: "Total number of table schema cache misses",
		},
	)

	// Store metrics
	WorkflowStepsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpilot_workflow_steps_created_total",
			Help: "Total number of workflow steps recorded",
		},
	)

	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpilot_conversations_created_total",
			Help: "Total number of conversations created",
		},
	)
)

// RecordQueryMetrics records metrics for a completed pipeline run.
func RecordQueryMetrics(role, status string, durationSeconds float64) {
	QueriesProcessed.WithLabelValues(role, status).Inc()
	PipelineDuration.Observe(durationSeconds)
}

// RecordNLUMetrics records a single NLU capability call.
func RecordNLUMetrics(operation, status string, durationSeconds float64) {
	NLURequests.WithLabelValues(operation, status).Inc()
	if durationSeconds > 0 {
		NLULatency.WithLabelValues(operation).Observe(durationSeconds)
	}
}
