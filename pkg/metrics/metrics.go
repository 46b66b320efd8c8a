package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miao_swap_quote_requests_total",
			Help: "Total number of quote requests by outcome",
		},
		[]string{"status"},
	)

	QuoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miao_swap_quote_duration_seconds",
		Help:    "Aggregator quote round trip in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	StaleQuotesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miao_swap_stale_quotes_dropped_total",
		Help: "Quote results discarded because a newer request was issued",
	})

	// Swap metrics
	SwapOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miao_swap_outcomes_total",
			Help: "Terminal swap states reached",
		},
		[]string{"state"},
	)

	ConfirmAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "miao_swap_confirm_attempts",
		Help:    "Ledger polls used per confirmation run",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 60},
	})

	ConfirmPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miao_swap_confirm_poll_errors_total",
		Help: "Ledger status polls that failed with a transport error",
	})
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
