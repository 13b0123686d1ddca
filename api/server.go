/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logger:     Request logging
  4. CORS:       Cross-origin requests for frontends

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
func NewRouter(h *Handler, allowOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor-Id", "X-Actor-Roles"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.InsertOrder)

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.InsertSubmission)
			r.Post("/payout", h.InsertPayout)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Route("/bulk", func(r chi.Router) {
				r.Post("/approve", h.BulkApprove)
				r.Post("/reject", h.BulkReject)
				r.Post("/account", h.BulkMarkAsAccounted)
				r.Post("/cancel", h.BulkCancel)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRequest)
				r.Delete("/", h.DeleteRequest)
				r.Post("/approve", h.Approve)
				r.Post("/reject", h.Reject)
				r.Post("/account", h.MarkAsAccounted)
				r.Post("/cancel", h.Cancel)
				r.Post("/correct", h.Correct)
				r.Post("/convert-to-payout", h.ConvertToPayout)
				r.Post("/scheduled-day-off", h.SetScheduledDayOff)
			})
		})

		r.Route("/supervisors/{id}", func(r chi.Router) {
			r.Get("/quota", h.GetSupervisorQuota)
			r.Get("/pending", h.ListPendingForSupervisor)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.SaveEmployee)
			r.Get("/{id}/requests", h.ListBySubmitter)
			r.Get("/{id}/balance", h.GetBalance)
		})
	})

	return r
}
