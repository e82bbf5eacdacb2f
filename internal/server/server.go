// Package server exposes the market gateway over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
	"github.com/Rajchodisetti/market-gateway/internal/market"
	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

// Server holds the handlers' dependencies.
type Server struct {
	service  *market.Service
	recorder *observ.Recorder
	health   *adapters.HealthTracker
	metrics  *observ.Registry
	registry *adapters.Registry
	logger   *observ.Logger
	origins  []string
	started  time.Time
}

// Options configures New. Health, Metrics and Logger may be nil.
type Options struct {
	Service        *market.Service
	Recorder       *observ.Recorder
	Health         *adapters.HealthTracker
	Metrics        *observ.Registry
	Registry       *adapters.Registry
	Logger         *observ.Logger
	AllowedOrigins []string
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observ.NewSilentLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observ.NewRegistry()
	}
	return &Server{
		service:  opts.Service,
		recorder: opts.Recorder,
		health:   opts.Health,
		metrics:  metrics,
		registry: opts.Registry,
		logger:   logger,
		origins:  opts.AllowedOrigins,
		started:  time.Now(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger, s.metrics))
	r.Use(recoveryMiddleware(s.logger))
	r.Use(corsMiddleware(s.origins))

	r.Get("/search", s.handleSearch)
	r.Get("/stocks", s.handleMissingSymbol)
	r.Get("/stocks/", s.handleMissingSymbol)
	r.Get("/stocks/{symbol}", s.handleQuote)
	r.Get("/candles", s.handleCandles)
	r.Get("/observability", s.handleObservability)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: "Not found",
			Meta:  newMeta(RequestID(r.Context()), nil),
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Error: "Method not allowed",
			Meta:  newMeta(RequestID(r.Context()), nil),
		})
	})
	return r
}
