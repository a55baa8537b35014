// Package server wires the HTTP surface of textreflex: routing,
// middleware, the analysis handler, and the server lifecycle.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/191-iota/textreflex/config"
	"github.com/191-iota/textreflex/server/metrics"
	"github.com/191-iota/textreflex/server/middleware"
)

// Router handles HTTP routing
type Router struct {
	router chi.Router
}

// NewRouter creates the router with the full middleware stack.
// The analyze handler is mounted under /v1; the rate limiter applies
// only to it, so health and metrics stay reachable under load.
func NewRouter(analyze http.Handler, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) *Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTimer)
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.CORS)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.PrometheusMetrics(m))

	r.Group(func(router chi.Router) {
		if cfg.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(cfg.RateLimit, m)
			router.Use(limiter.Middleware)
		}
		router.Post("/v1/analyze", analyze.ServeHTTP)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	r.Handle("/metrics", m.Handler())
	r.Get("/", indexHandler())

	return &Router{router: r}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
