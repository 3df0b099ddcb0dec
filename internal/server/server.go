// Package server wires the reference complaints API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/server/handlers"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/server/middleware"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/server/storage"
)

// HealthPath is exempt from request logging and rate limiting
const HealthPath = "/api/v1/health"

// Config holds router dependencies
type Config struct {
	Logger  *slog.Logger
	Storage storage.ComplaintStorage
	Limiter *middleware.RateLimiter // nil отключает rate limiting
	Version string
}

// NewRouter builds the HTTP handler for the complaints API.
// Chain: recovery -> logging -> rate limit -> mux.
func NewRouter(cfg Config) http.Handler {
	health := handlers.NewHealthHandler(cfg.Logger, cfg.Version)
	complaints := handlers.NewComplaintHandler(cfg.Logger, cfg.Storage)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthPath, health.Health)
	mux.HandleFunc("POST /api/v1/complaints", complaints.Create)
	mux.HandleFunc("GET /api/v1/complaints", complaints.List)
	mux.HandleFunc("GET /api/v1/complaints/{id}", complaints.Get)
	mux.HandleFunc("PATCH /api/v1/complaints/{id}", complaints.Update)
	mux.HandleFunc("DELETE /api/v1/complaints/{id}", complaints.Delete)

	var h http.Handler = mux
	if cfg.Limiter != nil {
		h = middleware.RateLimit(cfg.Limiter, HealthPath)(h)
	}
	h = middleware.Logging(cfg.Logger, HealthPath)(h)
	return middleware.Recovery(cfg.Logger)(h)
}
