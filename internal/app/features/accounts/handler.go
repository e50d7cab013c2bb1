// internal/app/features/accounts/handler.go
package accounts

import (
	"net/http"

	"github.com/dalemusser/alcancia/internal/app/ledger"
	"github.com/dalemusser/alcancia/internal/app/system/auth"
	"github.com/dalemusser/alcancia/internal/app/system/httpjson"
	"github.com/dalemusser/alcancia/internal/app/system/paging"
	"github.com/dalemusser/alcancia/internal/app/system/timeouts"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the caller's cash account and its transaction history.
type Handler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	return &Handler{Ledger: svc, Log: logger}
}

type openRequest struct {
	CurrencyCode string `json:"currency_code"`
}

// Open handles POST /accounts.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "open account")
	defer cancel()

	a, err := h.Ledger.OpenAccount(ctx, auth.MustCaller(r), req.CurrencyCode)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, a)
}

// Mine handles GET /accounts/me.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "get account")
	defer cancel()

	a, err := h.Ledger.MyAccount(ctx, auth.MustCaller(r))
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, a)
}

type recordRequest struct {
	Type        string       `json:"type"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
}

type recordResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Account     models.Account     `json:"account"`
}

// Record handles POST /accounts/{id}/transactions.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "record transaction")
	defer cancel()

	tx, a, err := h.Ledger.Record(ctx, ledger.RecordInput{
		AccountID:   chi.URLParam(r, "id"),
		UserID:      auth.MustCaller(r),
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, recordResponse{Transaction: tx, Account: a})
}

// Transactions handles GET /accounts/{id}/transactions?limit=N, newest first.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit := paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "list transactions")
	defer cancel()

	txs, err := h.Ledger.ListTransactions(ctx, chi.URLParam(r, "id"), auth.MustCaller(r), limit)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	httpjson.Write(w, http.StatusOK, txs)
}
