// Package metrics exposes the Prometheus metrics of the TeselaGen client.
// Metrics are declared with promauto in the packages that own them
// (client, cache, ratelimit, pagination), so importing any of those
// registers its metrics with Registry.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the registerer used by every promauto metric in this module.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry collected.
var Gatherer = prometheus.DefaultGatherer

// MetricsPath is the path Serve exposes.
const MetricsPath = "/metrics"

// Handler returns the Prometheus exposition handler for Gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr until ctx is done. The listener is bound
// synchronously, so a bad address fails here. The returned channel yields
// the server's exit error once it has stopped.
func Serve(ctx context.Context, addr string) (net.Addr, <-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
		close(done)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return ln.Addr(), done, nil
}

// Metrics reference
//
// Requests (pkg/client):
//   - tg_requests_total{endpoint, status} (Counter)
//   - tg_request_duration_seconds{endpoint} (Histogram)
//   - tg_errors_total{class} (Counter): client, server, rate_limit, network
//   - tg_retries_total{error_class} (Counter)
//   - tg_retry_backoff_seconds{error_class} (Histogram)
//   - tg_retry_exhausted_total{error_class} (Counter)
//
// Cache (pkg/cache):
//   - tg_cache_hits_total{layer="redis"} (Counter)
//   - tg_cache_misses_total (Counter)
//   - tg_cache_size_bytes{layer="redis"} (Gauge)
//   - tg_conditional_requests_total (Counter)
//   - tg_304_responses_total (Counter)
//   - tg_cache_errors_total{operation} (Counter)
//
// Throttling (pkg/ratelimit):
//   - tg_throttle_windows_total{status} (Counter): 429/503 windows recorded
//   - tg_throttle_wait_seconds (Histogram): time spent waiting out a window
//   - tg_throttle_blocks_total (Counter): requests refused because the window exceeded the max wait
//
// Bruteforce lookups (pkg/pagination):
//   - tg_bruteforce_lookups_total{source, result} (Counter): found, not_found, error
//   - tg_bruteforce_pages_scanned{source} (Histogram)
//
// Example queries:
//
//	# Cache hit rate
//	sum(rate(tg_cache_hits_total[5m])) /
//	(sum(rate(tg_cache_hits_total[5m])) + sum(rate(tg_cache_misses_total[5m])))
//
//	# Share of single-record fetches that needed a scan
//	sum(rate(tg_bruteforce_lookups_total[1h])) by (source)
//
//	# P95 latency
//	histogram_quantile(0.95, rate(tg_request_duration_seconds_bucket[5m]))
