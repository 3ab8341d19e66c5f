// Package metrics provides the Prometheus registry reference and the
// optional /metrics endpoint of the market scraper.
// All metrics are defined in their respective packages (client, cache, ratelimit)
// to maintain modularity and avoid circular dependencies.
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

// Registry is the default Prometheus registry used by the scraper.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Limiter Metrics (pkg/ratelimit):
//   - market_limiter_inflight (Gauge): Tokens held or awaiting delayed release, summed over all limiters
//   - market_limiter_queued (Gauge): Callers waiting for admission, summed over all limiters
//   - market_limiter_wait_seconds (Histogram): Time from Acquire to admission
//
// Cache Metrics (pkg/cache):
//   - market_cache_hits_total (Counter): Type detail cache hits
//   - market_cache_misses_total (Counter): Type detail cache misses
//   - market_cache_size_bytes (Gauge): Bytes written to the cache by this process
//   - market_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - market_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - market_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - market_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Retry Metrics (pkg/client):
//   - market_retries_total{error_class} (Counter): Retry attempts by error class
//   - market_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Example Prometheus Queries:
//
//   # Limiter saturation
//   market_limiter_queued > 0
//
//   # Request Error Rate
//   rate(market_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(market_request_duration_seconds_bucket[5m]))
//
//   # Retry pressure per endpoint class
//   sum by (error_class) (rate(market_retries_total[5m]))

// Handler returns the mux served by Serve: /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	return mux
}

// Serve exposes Handler on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return serve(ctx, ln)
}

func serve(ctx context.Context, ln net.Listener) error {
	logger := log.With().Str("component", "metrics").Logger()

	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server started")

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}

	logger.Info().Msg("Metrics server stopped")
	return nil
}
