package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(SwapOutcomes.WithLabelValues("succeeded"))
	SwapOutcomes.WithLabelValues("succeeded").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SwapOutcomes.WithLabelValues("succeeded")))

	stale := testutil.ToFloat64(StaleQuotesDropped)
	StaleQuotesDropped.Inc()
	assert.Equal(t, stale+1, testutil.ToFloat64(StaleQuotesDropped))
}
