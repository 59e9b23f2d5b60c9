// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LLMAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_attempts_total",
			Help: "Chat completion attempts by outcome kind",
		},
		[]string{"kind"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Completed LLM client calls by terminal outcome",
		},
		[]string{"outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Duration of LLM client calls including retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	IntentClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_classifications_total",
			Help: "Intent classifications by source and resolved intent",
		},
		[]string{"source", "intent"},
	)

	AgentResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_results_total",
			Help: "Agent results by agent and status",
		},
		[]string{"agent", "status"},
	)

	AgentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_duration_seconds",
			Help:    "Duration of agent dispatches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	OrchestratorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_requests_total",
			Help: "Answered queries by overall status",
		},
		[]string{"status"},
	)

	OrchestratorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_request_duration_seconds",
			Help:    "End-to-end duration of Answer calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	OrchestratorInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_requests_in_flight",
			Help: "Number of queries currently being answered",
		},
	)

	FusionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_fusion_total",
			Help: "Narrative fusion outcomes (llm, concatenated, single)",
		},
		[]string{"outcome"},
	)

	SEOCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_cache_lookups_total",
			Help: "SEO dataset cache lookups by result",
		},
		[]string{"result"},
	)
)
