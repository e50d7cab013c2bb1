// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit and MaxLimit bound list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParseLimit reads ?limit= from r. Missing or invalid values fall back to
// def; values above max are clamped.
func ParseLimit(r *http.Request, def, max int) int64 {
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if def > max {
		def = max
	}
	s := query.Get(r, "limit")
	if s == "" {
		return int64(def)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return int64(def)
	}
	if n > max {
		return int64(max)
	}
	return int64(n)
}
