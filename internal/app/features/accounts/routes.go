// internal/app/features/accounts/routes.go
package accounts

import "github.com/go-chi/chi/v5"

// MountRoutes registers the account endpoints on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/accounts", h.Open)
	r.Get("/accounts/me", h.Mine)
	r.Post("/accounts/{id}/transactions", h.Record)
	r.Get("/accounts/{id}/transactions", h.Transactions)
}
