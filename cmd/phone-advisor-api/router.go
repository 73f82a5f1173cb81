// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spherical-ai/phone-advisor/cmd/phone-advisor-api/handlers"
	"github.com/spherical-ai/phone-advisor/cmd/phone-advisor-api/middleware"
	"github.com/spherical-ai/phone-advisor/internal/catalog"
	"github.com/spherical-ai/phone-advisor/internal/observability"
)

// AppConfig holds HTTP layer configuration.
type AppConfig struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	ChatRateLimit  int
}

// DefaultAppConfig returns default configuration values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		RequestTimeout: 75 * time.Second,
		CORSOrigins:    []string{"*"},
		ChatRateLimit:  60,
	}
}

// Services are the collaborators the handlers call into.
type Services struct {
	Catalog   *catalog.Provider
	Chat      handlers.Chatter
	Rebuilder handlers.Rebuilder // nil when vector search is disabled
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *AppConfig, svc Services) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Phone Advisor API is running"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	catalogHandler := handlers.NewCatalogHandler(logger, svc.Catalog)
	chatHandler := handlers.NewChatHandler(logger, svc.Chat)
	indexHandler := handlers.NewIndexHandler(logger, svc.Rebuilder)

	r.Get("/brands", catalogHandler.Brands)
	r.Get("/price-range", catalogHandler.PriceRange)
	r.Get("/stats", catalogHandler.Stats)
	r.Post("/filter", catalogHandler.Filter)

	r.Route("/chat", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.ChatRateLimit))

		r.Post("/", chatHandler.Chat)
		r.Post("/recommend", chatHandler.Recommend)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/index/rebuild", indexHandler.Rebuild)
	})

	return r
}
