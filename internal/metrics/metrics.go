// Package metrics defines the Prometheus instrumentation surface of the
// gateway. Metrics are registered via promauto at package init and exposed
// on /metrics by the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch cache metrics
var (
	// CacheHitsTotal counts queries answered from a fresh cache entry.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_hits_total",
			Help: "Queries served from a fresh cache entry",
		},
	)

	// CacheStaleServesTotal counts queries that served a stale value while
	// a background refresh was running.
	CacheStaleServesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_stale_serves_total",
			Help: "Queries that served a stale value during revalidation",
		},
	)

	// CacheMissesTotal counts queries that had to block on a loader.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_misses_total",
			Help: "Queries with no usable cache entry",
		},
	)

	// CacheRefreshErrorsTotal counts failed loader executions.
	CacheRefreshErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_refresh_errors_total",
			Help: "Loader executions that returned an error",
		},
	)

	// CacheInvalidationsTotal counts entries marked stale by prefix invalidation.
	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_invalidations_total",
			Help: "Cache entries marked stale by invalidation",
		},
	)

	// CacheEntries tracks the current number of cache entries.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetch_cache_entries",
			Help: "Current number of cache entries",
		},
	)
)

// Workflow metrics
var (
	// WorkflowOpsTotal tracks workflow operations by kind, operation and outcome.
	WorkflowOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_operations_total",
			Help: "Workflow operations by kind, operation and outcome",
		},
		[]string{"kind", "operation", "outcome"},
	)
)

// Upstream API metrics
var (
	// UpstreamRequestsTotal tracks upstream municipal API calls by endpoint and outcome.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Upstream API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	// UpstreamRequestDuration tracks upstream API latency in seconds.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream API request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Region catalog cache metrics
var (
	// CatalogCacheRedisHits counts catalog lookups served from Redis.
	CatalogCacheRedisHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_redis_hits_total",
			Help: "Region catalog lookups served from Redis",
		},
	)

	// CatalogCacheUpstreamHits counts catalog lookups that fell through upstream.
	CatalogCacheUpstreamHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_upstream_hits_total",
			Help: "Region catalog lookups that fell through to the upstream catalog",
		},
	)
)
