// internal/app/features/goals/routes.go
package goals

import "github.com/go-chi/chi/v5"

// MountRoutes registers the personal goal endpoints on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/goals", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/contributions", h.Contribute)
		r.Delete("/{id}", h.Delete)
	})
}
