/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the front-end

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

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Session routes
		r.Post("/session", h.StartSession)
		r.Delete("/session", h.EndSession)

		// State routes
		r.Get("/state", h.GetState)
		r.Post("/activity", h.RecordActivity)
		r.Get("/stats", h.GetStats)
		r.Get("/view", h.GetView)
		r.Post("/focus", h.FocusRegain)

		// Lesson routes
		r.Route("/lessons", func(r chi.Router) {
			r.Get("/", h.ListLessons)
			r.Get("/{id}", h.GetLesson)
			r.Post("/{id}/progress", h.UpdateProgress)
			r.Post("/{id}/visit", h.VisitLesson)
		})

		// Daily challenge routes
		r.Route("/daily", func(r chi.Router) {
			r.Get("/", h.GetDaily)
			r.Post("/answer", h.SubmitDailyAnswer)
		})

		// Dev/test routes
		r.Post("/reset", h.ResetLedger)
		r.Delete("/namespace", h.PurgeNamespace)
	})

	return r
}
