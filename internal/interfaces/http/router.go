// Package http assembles the chi router and the HTTP server lifecycle.
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rentscope/rentscope/internal/application/cluster"
	"github.com/rentscope/rentscope/internal/application/estimate"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	"github.com/rentscope/rentscope/internal/interfaces/http/handlers"
	"github.com/rentscope/rentscope/internal/interfaces/http/middleware"
)

// RouterDeps carries everything the router mounts.  Limiter and Metrics
// may be nil and are then left out of the chain.
type RouterDeps struct {
	Clusters  *cluster.Service
	Estimates *estimate.Service
	Health    *handlers.HealthHandler
	Limiter   middleware.Limiter
	Metrics   *prometheus.Metrics
	CORS      middleware.CORSConfig
	Logger    logging.Logger
}

// NewRouter builds the full middleware chain and route table.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	if deps.Limiter != nil {
		r.Use(middleware.RateLimit(deps.Limiter, "/healthz", "/readyz", "/metrics"))
	}

	r.Get("/healthz", deps.Health.Live)
	r.Get("/readyz", deps.Health.Ready)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	mapHandler := handlers.NewMapHandler(deps.Clusters, deps.Logger)
	estimateHandler := handlers.NewEstimateHandler(deps.Estimates, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/map/listings", mapHandler.Listings)
		r.Get("/properties/estimate", estimateHandler.Estimate)
	})

	return r
}

// metricsMiddleware records request counts and latency per route pattern,
// not per raw path, so high-cardinality query strings never explode the
// label space.
func metricsMiddleware(m *prometheus.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
