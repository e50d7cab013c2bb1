// internal/app/features/groupgoals/routes.go
package groupgoals

import "github.com/go-chi/chi/v5"

// MountRoutes registers the group goal endpoints on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/groups/{id}/goals", h.Create)
	r.Get("/groups/{id}/goals", h.List)

	r.Route("/group-goals/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/contributions", h.Contribute)
		r.Get("/aggregate", h.Aggregate)
		r.Delete("/", h.Delete)
	})
}
