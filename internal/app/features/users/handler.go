// internal/app/features/users/handler.go
package users

import (
	"net/http"

	"github.com/dalemusser/alcancia/internal/app/onboarding"
	"github.com/dalemusser/alcancia/internal/app/system/auth"
	"github.com/dalemusser/alcancia/internal/app/system/httpjson"
	"github.com/dalemusser/alcancia/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the caller's profile.
type Handler struct {
	Onboarding *onboarding.Service
	Log        *zap.Logger
}

func NewHandler(svc *onboarding.Service, logger *zap.Logger) *Handler {
	return &Handler{Onboarding: svc, Log: logger}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register handles POST /users. The profile id is the caller's identity.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "register user")
	defer cancel()

	u, err := h.Onboarding.RegisterUser(ctx, auth.MustCaller(r), req.Name, req.Email)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, u)
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "get user")
	defer cancel()

	u, err := h.Onboarding.GetUser(ctx, auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}
