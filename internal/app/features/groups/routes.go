// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

// MountRoutes registers the group endpoints on r. Group goals and
// invitations share the /groups/{id} prefix, so paths are registered flat
// rather than under a mounted subrouter.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/groups", h.Create)
	r.Get("/groups", h.Mine)
	r.Get("/groups/by-tag/{tag}", h.ByTag)
	r.Get("/groups/{id}/members", h.Members)
	r.Post("/groups/{id}/members/{userID}/role", h.SetRole)
	r.Delete("/groups/{id}/members/{userID}", h.RemoveMember)
}
