// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMRequests counts completions by model and outcome.
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_llm_requests_total",
			Help: "Total number of language model requests",
		},
		[]string{"model", "status"}, // status: "success", "error", "no_key"
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "novelly_llm_request_duration_seconds",
			Help:    "Duration of language model requests in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"model"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_llm_tokens_total",
			Help: "Total tokens consumed",
		},
		[]string{"model", "kind"}, // kind: "prompt", "completion"
	)

	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_llm_cost_usd_total",
			Help: "Estimated language model spend in USD",
		},
		[]string{"model"},
	)

	// LookupRequests counts metadata provider calls by provider and outcome.
	LookupRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_lookup_requests_total",
			Help: "Total number of external metadata lookups",
		},
		[]string{"provider", "result"}, // result: "hit", "miss", "error"
	)

	LookupCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_lookup_cache_total",
			Help: "Lookup cache reads by result",
		},
		[]string{"result"}, // "hit", "negative", "miss"
	)

	// CatalogEntriesCreated counts new catalog entries by extraction source.
	CatalogEntriesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_catalog_entries_created_total",
			Help: "Total catalog entries created",
		},
		[]string{"source"},
	)

	// CatalogExtractions counts tiered extraction attempts.
	CatalogExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_catalog_extractions_total",
			Help: "Catalog extraction attempts by mode and result",
		},
		[]string{"mode", "result"}, // mode: "single", "batch", "tier3"; result: "success", "fallback"
	)

	CatalogSessionCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_catalog_session_cache_total",
			Help: "Catalog session cache reads by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	CatalogSessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "novelly_catalog_session_cache_entries",
			Help: "Entries in the in-process catalog session cache",
		},
	)

	EnrichmentQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "novelly_enrichment_queue_depth",
			Help: "Catalog keys waiting for tier-3 enrichment",
		},
	)

	EnrichmentProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_enrichment_processed_total",
			Help: "Catalog keys taken off the enrichment queue",
		},
		[]string{"result"}, // "enriched", "skipped", "failed"
	)

	HydrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "novelly_hydration_duration_seconds",
			Help:    "Duration of recommendation list hydration",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	HydrationBooks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_hydration_books_total",
			Help: "Books processed by hydration",
		},
		[]string{"result"}, // "hydrated", "uncataloged", "degraded"
	)

	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_recommendation_requests_total",
			Help: "Recommendation requests by mode and outcome",
		},
		[]string{"mode", "result"},
	)

	FeedGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_feed_generations_total",
			Help: "Home feed requests by cache outcome",
		},
		[]string{"result"}, // "cached", "generated", "failed"
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "novelly_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novelly_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "novelly_sse_clients",
			Help: "Connected server-sent event clients",
		},
	)
)
