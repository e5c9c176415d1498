// Package metrics exports optimizer activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
)

const namespace = "cartola"

// Recorder implements optimizer.Recorder on a Prometheus registry.
type Recorder struct {
	registry      *prometheus.Registry
	optimizations *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	selected      *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	searchLimits  prometheus.Counter
	upstreamState prometheus.Gauge
}

var _ optimizer.Recorder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		optimizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizations_total",
			Help:      "Optimizations served, by strategy and whether the exact path fell back.",
		}, []string{"strategy", "fallback"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimization_duration_seconds",
			Help:      "Wall time of an optimization request.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"strategy"}),
		selected: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimization_selected_players",
			Help:      "Players in the returned lineup.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}, []string{"strategy"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_fallbacks_total",
			Help:      "Exact attempts that fell back to the heuristic, by reason.",
		}, []string{"reason"}),
		searchLimits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exact_search_limited_total",
			Help:      "Exact lineups returned without an optimality proof because the search hit its limits.",
		}),
		upstreamState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_breaker_state",
			Help:      "Cartola API circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}

	r.registry.MustRegister(
		r.optimizations,
		r.duration,
		r.selected,
		r.fallbacks,
		r.searchLimits,
		r.upstreamState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveOptimization(strategy optimizer.Strategy, fallback bool, seconds float64, selected int) {
	s := string(strategy)
	r.optimizations.WithLabelValues(s, strconv.FormatBool(fallback)).Inc()
	r.duration.WithLabelValues(s).Observe(seconds)
	r.selected.WithLabelValues(s).Observe(float64(selected))
}

func (r *Recorder) ObserveFallback(reason string) {
	r.fallbacks.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveSearchLimit() {
	r.searchLimits.Inc()
}

// SetUpstreamState records the provider breaker state as reported by
// gobreaker (StateClosed, StateHalfOpen, StateOpen).
func (r *Recorder) SetUpstreamState(state int) {
	r.upstreamState.Set(float64(state))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
