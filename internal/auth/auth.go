// Package auth authenticates bearer tokens and maps their scopes onto
// read and write command access.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// Scopes.
const (
	ScopeAdmin = "*"
	ScopeRead  = "rpc:ro"
	ScopeWrite = "rpc:rw"
)

// TokenConfig is a bearer token with a set of scopes.
type TokenConfig struct {
	Name   string   `yaml:"name" json:"name"`
	Token  string   `yaml:"token" json:"-"`
	Scopes []string `yaml:"scopes" json:"scopes"`
}

type Principal struct {
	Name   string
	Scopes map[string]struct{}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid Authorization header format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Authenticate matches a presented bearer token against configured tokens.
func Authenticate(presented string, tokens []TokenConfig) (Principal, bool) {
	for _, t := range tokens {
		if constantTimeEqual(presented, t.Token) {
			return Principal{Name: t.Name, Scopes: normalizeScopes(t.Scopes)}, true
		}
	}
	return Principal{}, false
}

func normalizeScopes(scopes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}
	// Write implies read.
	if _, ok := out[ScopeWrite]; ok {
		out[ScopeRead] = struct{}{}
	}
	return out
}

func HasAnyScope(p Principal, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if _, ok := p.Scopes[ScopeAdmin]; ok {
		return true
	}
	for _, s := range required {
		if _, ok := p.Scopes[s]; ok {
			return true
		}
	}
	return false
}

// CanInvoke reports whether p may run a command that writes (or only reads).
func CanInvoke(p Principal, writes bool) bool {
	if writes {
		return HasAnyScope(p, ScopeWrite)
	}
	return HasAnyScope(p, ScopeRead)
}

// ValidScope reports whether s is a known scope.
func ValidScope(s string) bool {
	switch s {
	case ScopeAdmin, ScopeRead, ScopeWrite:
		return true
	}
	return false
}
