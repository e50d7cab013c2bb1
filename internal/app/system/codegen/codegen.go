// internal/app/system/codegen/codegen.go
//
// Package codegen issues the short human-typeable codes used to find
// groups ("K3P9QX") and users ("@mariag7k2p"). It never writes: callers
// persist the code and rely on the unique index for the final word.
package codegen

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"unicode"

	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/text"
)

const (
	groupAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	userAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"

	// GroupTagLength is the length of a group tag.
	GroupTagLength = 6
	// UserSuffixLength is the number of random characters after the name base.
	UserSuffixLength = 4

	// DefaultMaxAttempts bounds how many candidates are tried per call.
	DefaultMaxAttempts = 64
)

// ErrExhausted is returned when every attempt collided with an existing code.
var ErrExhausted = apperr.New(apperr.KindCodeSpaceExhausted, "could not find a free code")

// TagChecker reports whether a code is already taken.
type TagChecker interface {
	TagExists(ctx context.Context, tag string) (bool, error)
}

// Generator produces unique codes against two tag namespaces.
type Generator struct {
	groups      TagChecker
	users       TagChecker
	rand        io.Reader
	maxAttempts int
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces crypto/rand as the randomness source.
func WithRand(r io.Reader) Option { return func(g *Generator) { g.rand = r } }

// WithMaxAttempts bounds retries per call; n < 1 is ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// New returns a Generator checking group tags against groups and user tags against users.
func New(groups, users TagChecker, opts ...Option) *Generator {
	g := &Generator{
		groups:      groups,
		users:       users,
		rand:        rand.Reader,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// GenerateGroupTag returns a 6-character A-Z0-9 tag no group holds yet.
func (g *Generator) GenerateGroupTag(ctx context.Context) (string, error) {
	return g.unique(ctx, g.groups, func() (string, error) {
		return g.randomString(groupAlphabet, GroupTagLength)
	})
}

// GenerateUserTag returns "@" + base + 4 random a-z0-9 characters, where
// base is the folded first name plus the first letter of the second.
func (g *Generator) GenerateUserTag(ctx context.Context, displayName string) (string, error) {
	base := UserTagBase(displayName)
	return g.unique(ctx, g.users, func() (string, error) {
		suffix, err := g.randomString(userAlphabet, UserSuffixLength)
		if err != nil {
			return "", err
		}
		return "@" + base + suffix, nil
	})
}

func (g *Generator) unique(ctx context.Context, checker TagChecker, next func() (string, error)) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := next()
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, err, "read random source")
		}
		taken, err := checker.TagExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// randomString draws n characters from alphabet with rejection sampling so
// every character is equally likely.
func (g *Generator) randomString(alphabet string, n int) (string, error) {
	limit := byte(256 - 256%len(alphabet))
	buf := make([]byte, 1)
	var b strings.Builder
	b.Grow(n)
	for b.Len() < n {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", err
		}
		if buf[0] >= limit {
			continue
		}
		b.WriteByte(alphabet[int(buf[0])%len(alphabet)])
	}
	return b.String(), nil
}

// UserTagBase derives the readable part of a user tag from a display name:
// the first word plus the initial of the second, folded to a-z0-9.
// An empty result falls back to "u".
func UserTagBase(displayName string) string {
	words := strings.Fields(displayName)
	var base string
	if len(words) > 0 {
		base = alnum(text.Fold(words[0]))
	}
	if len(words) > 1 {
		if second := alnum(text.Fold(words[1])); second != "" {
			base += second[:1]
		}
	}
	if base == "" {
		return "u"
	}
	return base
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
