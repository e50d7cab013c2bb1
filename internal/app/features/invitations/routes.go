// internal/app/features/invitations/routes.go
package invitations

import "github.com/go-chi/chi/v5"

// MountRoutes registers the invitation endpoints on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/groups/{id}/invitations", h.Create)
	r.Route("/invitations", func(r chi.Router) {
		r.Get("/pending", h.Pending)
		r.Post("/{id}/accept", h.Accept)
		r.Post("/{id}/reject", h.Reject)
	})
}
