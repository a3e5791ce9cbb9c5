// Package prometheus registers and exposes the engine's operational metrics.
// A single Metrics value is constructed at startup and injected into the
// HTTP layer and the application services; tests use NewMetrics with a fresh
// registry so parallel packages never collide on registration.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every metric the engine emits.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP layer
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Clustering
	ClusterQueries       *prometheus.CounterVec // labels: strategy, outcome
	ClusterQueryDuration prometheus.Histogram
	ClusterFeatureCount  prometheus.Histogram

	// Estimation
	EstimateRequests  *prometheus.CounterVec // labels: method
	EstimateDuration  prometheus.Histogram
	EstimateCompCount prometheus.Histogram

	// Cache & rate limiting
	CacheHitsTotal      *prometheus.CounterVec // label: op
	CacheMissesTotal    *prometheus.CounterVec // label: op
	CacheErrorsTotal    *prometheus.CounterVec // label: op
	RateLimitRejections prometheus.Counter

	// Store
	DBQueryDuration *prometheus.HistogramVec // label: query
}

var (
	httpDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	dbDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewMetrics constructs and registers all engine metrics on a fresh
// registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total",
		Help: "Total HTTP requests by method, route, and status code.",
	}, []string{"method", "route", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds",
		Help:    "HTTP request duration by method and route.",
		Buckets: httpDurationBuckets,
	}, []string{"method", "route"})

	m.ClusterQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cluster_queries_total",
		Help: "Viewport queries by strategy (grid|points) and outcome (ok|error).",
	}, []string{"strategy", "outcome"})

	m.ClusterQueryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "cluster_query_duration_seconds",
		Help:    "End-to-end viewport query duration including store time.",
		Buckets: httpDurationBuckets,
	})

	m.ClusterFeatureCount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "cluster_feature_count",
		Help:    "Features returned per viewport query.",
		Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2000},
	})

	m.EstimateRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "estimate_requests_total",
		Help: "Rent estimate requests by selected method.",
	}, []string{"method"})

	m.EstimateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "estimate_duration_seconds",
		Help:    "Rent estimate computation duration.",
		Buckets: httpDurationBuckets,
	})

	m.EstimateCompCount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "estimate_comp_count",
		Help:    "Comparable rentals used per estimate.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 15},
	})

	m.CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_hits_total",
		Help: "Cache hits by operation.",
	}, []string{"op"})

	m.CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_misses_total",
		Help: "Cache misses by operation (backend errors count as misses).",
	}, []string{"op"})

	m.CacheErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_errors_total",
		Help: "Cache backend errors swallowed by fail-open handling.",
	}, []string{"op"})

	m.RateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ratelimit_rejections_total",
		Help: "Requests rejected by the rate limiter.",
	})

	m.DBQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_query_duration_seconds",
		Help:    "Store query duration by query name.",
		Buckets: dbDurationBuckets,
	}, []string{"query"})

	reg.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
		m.ClusterQueries, m.ClusterQueryDuration, m.ClusterFeatureCount,
		m.EstimateRequests, m.EstimateDuration, m.EstimateCompCount,
		m.CacheHitsTotal, m.CacheMissesTotal, m.CacheErrorsTotal,
		m.RateLimitRejections,
		m.DBQueryDuration,
	)

	return m
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
