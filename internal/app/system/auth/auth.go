// internal/app/system/auth/auth.go
//
// Package auth reads the caller identity placed on each request by the
// identity gateway in front of this service. Sessions, passwords and
// tokens are handled there; by the time a request arrives here the
// X-User-ID header is trusted.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/httpjson"
)

// Header carries the authenticated user id.
const Header = "X-User-ID"

// maxIDLen bounds the header value; longer ids are treated as malformed.
const maxIDLen = 128

type ctxKey string

const callerKey ctxKey = "caller"

// WithCaller returns ctx carrying userID as the caller.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey, userID)
}

// Caller returns the caller's user id and whether one is present.
func Caller(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(callerKey).(string)
	return id, ok && id != ""
}

// MustCaller returns the caller id set by RequireCaller. Handlers mounted
// behind RequireCaller may rely on it being non-empty.
func MustCaller(r *http.Request) string {
	id, _ := Caller(r)
	return id
}

// LoadCaller copies the identity header into the request context when present.
func LoadCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id != "" && len(id) <= maxIDLen {
			r = r.WithContext(WithCaller(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCaller rejects requests without a caller with 401 and the
// standard error body.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := Caller(r); !ok {
			httpjson.Write(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]string{
					"kind":    string(apperr.KindNotAuthorized),
					"message": "missing " + Header + " header",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
