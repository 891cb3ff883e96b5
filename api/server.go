/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/billing/*       Calculator previews (stateless)
  /api/settlements/*   Settlement sweeps and run history
  /api/students/*      Per-student credit lookup
  /api/health          Liveness

SECURITY NOTE:
  No authentication middleware currently. The engine is expected to run
  behind the academy gateway, which authenticates staff requests.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Calculator previews
		r.Route("/billing", func(r chi.Router) {
			r.Post("/due-date", h.ResolveDueDate)
			r.Post("/mid-season-fee", h.MidSeasonFee)
			r.Post("/tail-fee", h.TailFee)
			r.Post("/season-transition", h.SeasonTransition)
			r.Post("/refund-preview", h.RefundPreview)
		})

		// Settlement admin
		r.Route("/settlements", func(r chi.Router) {
			r.Post("/run", h.RunSettlement)
			r.Get("/runs", h.ListRuns)
		})

		// Student credits
		r.Get("/students/{id}/credits", h.ListCredits)

		// Health check
		r.Get("/health", h.Health)
	})

	return r
}
