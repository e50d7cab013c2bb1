// internal/app/features/invitations/handler.go
package invitations

import (
	"net/http"

	"github.com/dalemusser/alcancia/internal/app/invitations"
	"github.com/dalemusser/alcancia/internal/app/system/auth"
	"github.com/dalemusser/alcancia/internal/app/system/httpjson"
	"github.com/dalemusser/alcancia/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves group invitations for both sides: admins sending them and
// invited users resolving them.
type Handler struct {
	Invitations *invitations.Service
	Log         *zap.Logger
}

func NewHandler(svc *invitations.Service, logger *zap.Logger) *Handler {
	return &Handler{Invitations: svc, Log: logger}
}

type createRequest struct {
	InvitedUserID string `json:"invited_user_id"`
}

// Create handles POST /groups/{id}/invitations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create invitation")
	defer cancel()

	inv, err := h.Invitations.Create(ctx, chi.URLParam(r, "id"), auth.MustCaller(r), req.InvitedUserID)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, inv)
}

// Pending handles GET /invitations/pending.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list pending invitations")
	defer cancel()

	out, err := h.Invitations.ListPending(ctx, auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

// Accept handles POST /invitations/{id}/accept and returns the new membership.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "accept invitation")
	defer cancel()

	m, err := h.Invitations.Accept(ctx, chi.URLParam(r, "id"), auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, m)
}

// Reject handles POST /invitations/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "reject invitation")
	defer cancel()

	inv, err := h.Invitations.Reject(ctx, chi.URLParam(r, "id"), auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, inv)
}
