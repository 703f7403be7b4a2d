package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Response cache metrics, registered on the default registry.
var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_cache_hits_total",
		Help: "Response cache hits by layer",
	}, []string{"layer"})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_cache_misses_total",
		Help: "Response cache misses, expired entries included",
	})

	CacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tg_cache_size_bytes",
		Help: "Bytes written to the response cache by layer",
	}, []string{"layer"})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_cache_invalidations_total",
		Help: "Entries dropped after a write to their collection",
	})

	// ConditionalRequestsSent counts GETs revalidated with If-None-Match or If-Modified-Since.
	ConditionalRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_conditional_requests_total",
		Help: "Conditional requests sent",
	})

	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_304_responses_total",
		Help: "304 Not Modified answers served from the cache",
	})

	// CacheErrors is labelled by operation: get, set, delete, invalidate.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_cache_errors_total",
		Help: "Response cache operation errors",
	}, []string{"operation"})
)
