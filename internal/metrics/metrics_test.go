package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
)

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()

	r.ObserveOptimization(optimizer.StrategyExact, false, 0.2, 12)
	r.ObserveOptimization(optimizer.StrategyHeuristic, true, 0.01, 11)
	r.ObserveOptimization(optimizer.StrategyHeuristic, true, 0.01, 12)
	r.ObserveFallback("solver_error")
	r.ObserveFallback("solver_error")
	r.ObserveSearchLimit()
	r.SetUpstreamState(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.optimizations.WithLabelValues("exact", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.optimizations.WithLabelValues("heuristic", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("solver_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.searchLimits))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.upstreamState))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveFallback("solver_missing")

	server := httptest.NewServer(r.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `cartola_optimizer_fallbacks_total{reason="solver_missing"} 1`)
}
