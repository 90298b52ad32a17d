package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// SetupRoutes configures all API routes. health and metricsHandler may be nil.
func SetupRoutes(h *Handlers, health *HealthChecker, metricsHandler http.Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	})
	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/import", h.HandleImport)

		r.Get("/summaries", h.HandleListSummaries)
		r.Post("/summaries", h.HandlePublishAll)
		r.Get("/summaries/{entity}", h.HandleGetSummary)
		r.Post("/summaries/{entity}", h.HandleSummarizeEntity)

		r.Get("/entities", h.HandleListEntities)
		r.Get("/status", h.HandleStatus)

		r.Get("/export/records.csv", h.HandleExportRecords)
		r.Get("/export/summaries.csv", h.HandleExportSummaries)
	})

	return r
}
