// Package metrics provides Prometheus instrumentation for the typing
// presence service. It exposes counters for typing signals and checks, a
// latency histogram for the check path, and a counter for store failures
// (which are otherwise swallowed by the fail-silent policy).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SignalsTotal counts accepted typing signals, labeled by signal:
	// "start" or "stop".
	SignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_typing_signals_total",
		Help: "Total number of typing start/stop signals accepted",
	}, []string{"signal"})

	// ChecksTotal counts typing checks, labeled by result: "typing",
	// "quiet", or "error".
	ChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_typing_checks_total",
		Help: "Total number of typing checks served",
	}, []string{"result"})

	// CheckLatency records end-to-end typing check latency in seconds.
	CheckLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "network_typing_check_latency_seconds",
		Help:    "Typing check handler latency in seconds",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5},
	})

	// StoreErrors counts presence store failures, labeled by op: "mark",
	// "clear", or "query". The API reports success to clients regardless,
	// so this counter is the only place these surface.
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_typing_store_errors_total",
		Help: "Total number of presence store operation failures",
	}, []string{"op"})

	// RateLimited counts requests rejected by the rate limiter, labeled by
	// endpoint: "signal" or "check".
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_typing_rate_limited_total",
		Help: "Total number of typing requests rejected by rate limiting",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		ChecksTotal,
		CheckLatency,
		StoreErrors,
		RateLimited,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
