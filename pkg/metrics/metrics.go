// Package metrics defines the Prometheus collectors used by the launcher
// daemon and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the daemon.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchesTotal        *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchResults        prometheus.Histogram
	SelectionsTotal      *prometheus.CounterVec
	LearnedQueries       prometheus.Gauge
	HistorySize          prometheus.Gauge
	CatalogItems         *prometheus.GaugeVec
	RankstoreSavesTotal  *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry(); the daemon passes
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_searches_total",
				Help: "Total launcher searches by mode (recent, matched, zero_result).",
			},
			[]string{"mode"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_search_latency_seconds",
				Help:    "Time spent ranking the catalog for one query.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_search_results",
				Help:    "Number of ranked items per search before the limit is applied.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
			},
		),
		SelectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_selections_total",
				Help: "Total recorded selections by outcome (top, ranked, unranked).",
			},
			[]string{"outcome"},
		),
		LearnedQueries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_learned_queries",
				Help: "Number of queries with learned preferences.",
			},
		),
		HistorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_history_size",
				Help: "Number of item ids in the recency history.",
			},
		),
		CatalogItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_items",
				Help: "Number of catalog items per source.",
			},
			[]string{"source"},
		),
		RankstoreSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankstore_saves_total",
				Help: "Ranking context saves by store and status.",
			},
			[]string{"store", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResults,
		m.SelectionsTotal,
		m.LearnedQueries,
		m.HistorySize,
		m.CatalogItems,
		m.RankstoreSavesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler serves g in the Prometheus exposition format. Daemons pass
// prometheus.DefaultGatherer, which also carries the Go runtime and process
// collectors.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
