// internal/app/features/goals/handler.go
package goals

import (
	"net/http"
	"time"

	"github.com/dalemusser/alcancia/internal/app/ledger"
	"github.com/dalemusser/alcancia/internal/app/system/auth"
	"github.com/dalemusser/alcancia/internal/app/system/httpjson"
	"github.com/dalemusser/alcancia/internal/app/system/timeouts"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves personal savings goals.
type Handler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	return &Handler{Ledger: svc, Log: logger}
}

type createRequest struct {
	Name         string       `json:"name"`
	TargetAmount money.Amount `json:"target_amount"`
	TargetDate   *time.Time   `json:"target_date"`
}

// Create handles POST /goals.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create goal")
	defer cancel()

	g, err := h.Ledger.CreateGoal(ctx, ledger.GoalInput{
		OwnerUserID:  auth.MustCaller(r),
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		TargetDate:   req.TargetDate,
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, g)
}

// List handles GET /goals.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list goals")
	defer cancel()

	gs, err := h.Ledger.ListGoals(ctx, auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if gs == nil {
		gs = []models.Goal{}
	}
	httpjson.Write(w, http.StatusOK, gs)
}

// Get handles GET /goals/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "get goal")
	defer cancel()

	g, err := h.Ledger.GetGoal(ctx, chi.URLParam(r, "id"), auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, g)
}

type contributeRequest struct {
	// AccountID defaults to the caller's account.
	AccountID string       `json:"account_id"`
	Amount    money.Amount `json:"amount"`
}

// Contribute handles POST /goals/{id}/contributions.
func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "goal contribution")
	defer cancel()

	caller := auth.MustCaller(r)
	if req.AccountID == "" {
		a, err := h.Ledger.MyAccount(ctx, caller)
		if err != nil {
			httpjson.Error(w, r, h.Log, err)
			return
		}
		req.AccountID = a.ID
	}

	res, err := h.Ledger.Contribute(ctx, ledger.ContributeInput{
		GoalID:    chi.URLParam(r, "id"),
		AccountID: req.AccountID,
		UserID:    caller,
		Amount:    req.Amount,
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

// Delete handles DELETE /goals/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "delete goal")
	defer cancel()

	if err := h.Ledger.DeleteGoal(ctx, chi.URLParam(r, "id"), auth.MustCaller(r)); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
