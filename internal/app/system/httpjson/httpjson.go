// internal/app/system/httpjson/httpjson.go
//
// Package httpjson reads request bodies and writes JSON responses, mapping
// apperr kinds onto HTTP status codes.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBodyBytes caps a decoded request body.
const MaxBodyBytes = 1 << 20

// errorBody is {"error": {"kind": "...", "message": "..."}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Write encodes v as the response with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotAuthorized:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadyExists, apperr.KindAlreadyMember,
		apperr.KindInvitationAlreadyPending, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInsufficientFunds, apperr.KindAmountExceedsRemaining,
		apperr.KindGoalAlreadyCompleted, apperr.KindGoalHasProgress,
		apperr.KindGoalHasContributions, apperr.KindInvitationNotPending,
		apperr.KindInvitationExpired:
		return http.StatusUnprocessableEntity
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindStoreUnavailable, apperr.KindCodeSpaceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err in the standard error body. Server-side failures are
// logged with the full chain; clients only see the public message.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	Write(w, status, errorBody{Error: errorDetail{Kind: kind, Message: apperr.PublicMessage(err)}})
}

// Decode reads a JSON body into dst. Unknown fields and trailing data are
// rejected as Validation errors.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.New(apperr.KindValidation, "request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindValidation, "request body is required")
		}
		return apperr.New(apperr.KindValidation, "invalid JSON body: %v", err)
	}
	if dec.More() {
		return apperr.New(apperr.KindValidation, "request body must hold a single JSON object")
	}
	return nil
}
