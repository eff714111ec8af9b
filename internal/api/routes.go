package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - the dashboard is served from arbitrary origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)
	r.Get("/metrics", h.GetMetrics)

	r.Post("/predict", h.PredictChurn)
	r.Post("/predict/batch", h.PredictBatch)

	r.Get("/history", h.GetHistory)
	r.Get("/history/stats", h.GetHistoryStats)
	r.Delete("/history/{id}", h.DeleteHistoryItem)
	r.Delete("/history", h.ClearHistory)

	return r
}
