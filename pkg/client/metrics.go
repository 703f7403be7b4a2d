package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for platform requests.
var (
	tgRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_requests_total",
		Help: "Total TeselaGen requests by endpoint and status",
	}, []string{"endpoint", "status"})

	tgRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tg_request_duration_seconds",
		Help:    "TeselaGen request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	tgErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_errors_total",
		Help: "Total TeselaGen errors by class",
	}, []string{"class"})

	tgRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	tgRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tg_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	tgRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)
