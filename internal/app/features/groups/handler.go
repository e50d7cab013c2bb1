// internal/app/features/groups/handler.go
package groups

import (
	"net/http"

	"github.com/dalemusser/alcancia/internal/app/onboarding"
	"github.com/dalemusser/alcancia/internal/app/system/auth"
	"github.com/dalemusser/alcancia/internal/app/system/httpjson"
	"github.com/dalemusser/alcancia/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves groups, their tags and their member roster.
type Handler struct {
	Onboarding *onboarding.Service
	Log        *zap.Logger
}

func NewHandler(svc *onboarding.Service, logger *zap.Logger) *Handler {
	return &Handler{Onboarding: svc, Log: logger}
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /groups. The caller becomes the group's first admin.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create group")
	defer cancel()

	g, err := h.Onboarding.CreateGroup(ctx, auth.MustCaller(r), req.Name, req.Description)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, g)
}

// Mine handles GET /groups.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list my groups")
	defer cancel()

	gs, err := h.Onboarding.ListMyGroups(ctx, auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, gs)
}

// ByTag handles GET /groups/by-tag/{tag}.
func (h *Handler) ByTag(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "find group by tag")
	defer cancel()

	g, err := h.Onboarding.FindGroupByTag(ctx, chi.URLParam(r, "tag"))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, g)
}

// Members handles GET /groups/{id}/members.
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list members")
	defer cancel()

	ms, err := h.Onboarding.ListMembers(ctx, chi.URLParam(r, "id"), auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ms)
}

type roleRequest struct {
	Role string `json:"role"`
}

// SetRole handles POST /groups/{id}/members/{userID}/role.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "set member role")
	defer cancel()

	err := h.Onboarding.SetMemberRole(ctx, chi.URLParam(r, "id"), auth.MustCaller(r), chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles DELETE /groups/{id}/members/{userID}. Members use it
// to leave; admins use it to remove others.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "remove member")
	defer cancel()

	err := h.Onboarding.RemoveMember(ctx, chi.URLParam(r, "id"), auth.MustCaller(r), chi.URLParam(r, "userID"))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
