// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize cleans user-supplied free text (goal names, group
// descriptions, transaction notes) before it is stored. Nothing here is
// rendered as HTML, so every tag is stripped rather than whitelisted.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// PlainText removes all markup from s and returns the trimmed text.
// Script and style bodies are dropped entirely.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	clean := policy().Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(clean))
}

// Limit returns PlainText(s) truncated to at most max runes.
func Limit(s string, max int) string {
	s = PlainText(s)
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
