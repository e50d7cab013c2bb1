// internal/app/features/users/routes.go
package users

import "github.com/go-chi/chi/v5"

// MountRoutes registers the profile endpoints on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/users", h.Register)
	r.Get("/users/me", h.Me)
}
