package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/alcancia/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Router returns a chi router with the caller middleware bootstrap installs,
// with mount's routes registered behind RequireCaller.
func Router(mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.LoadCaller)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireCaller)
		mount(r)
	})
	return r
}

// Do sends a request as userID (no identity header when empty). A non-nil
// body is encoded as JSON.
func Do(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(auth.Header, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON unmarshals the recorded body into dst.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// ErrorKind returns the kind from a standard error body.
func ErrorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	DecodeJSON(t, rec, &body)
	return body.Error.Kind
}

// WantStatus fails the test unless rec has the given status.
func WantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}
