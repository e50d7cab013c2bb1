// internal/app/features/groupgoals/handler.go
package groupgoals

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

// Handler serves shared group goals and their contribution statistics.
type Handler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	return &Handler{Ledger: svc, Log: logger}
}

type createRequest struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	TargetAmount money.Amount `json:"target_amount"`
	TargetDate   *time.Time   `json:"target_date"`
}

// Create handles POST /groups/{id}/goals. Admins only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "create group goal")
	defer cancel()

	g, err := h.Ledger.CreateGroupGoal(ctx, ledger.GroupGoalInput{
		GroupID:       chi.URLParam(r, "id"),
		CreatorUserID: auth.MustCaller(r),
		Name:          req.Name,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		TargetDate:    req.TargetDate,
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, g)
}

// List handles GET /groups/{id}/goals.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list group goals")
	defer cancel()

	gs, err := h.Ledger.ListGroupGoals(ctx, chi.URLParam(r, "id"), auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if gs == nil {
		gs = []models.GroupGoal{}
	}
	httpjson.Write(w, http.StatusOK, gs)
}

// Get handles GET /group-goals/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "get group goal")
	defer cancel()

	g, err := h.Ledger.GetGroupGoal(ctx, chi.URLParam(r, "id"), auth.MustCaller(r))
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

// Contribute handles POST /group-goals/{id}/contributions.
func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "group goal contribution")
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

	res, err := h.Ledger.ContributeToGroupGoal(ctx, ledger.GroupContributeInput{
		GroupGoalID: chi.URLParam(r, "id"),
		AccountID:   req.AccountID,
		UserID:      caller,
		Amount:      req.Amount,
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, res)
}

// Aggregate handles GET /group-goals/{id}/aggregate.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "group goal aggregate")
	defer cancel()

	agg, err := h.Ledger.Aggregate(ctx, chi.URLParam(r, "id"), auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, agg)
}

// Delete handles DELETE /group-goals/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "delete group goal")
	defer cancel()

	if err := h.Ledger.DeleteGroupGoal(ctx, chi.URLParam(r, "id"), auth.MustCaller(r)); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
