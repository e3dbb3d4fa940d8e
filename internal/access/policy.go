// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package access decides whether a request needs credentials and
// resolves the principal behind them.
//
// The decision function RequiresAuth is pure. Credential extraction and
// principal resolution are pluggable through the Policy interface, with
// Noop, Basic, and Session variants selected by configuration.
package access

import (
	"context"
	"net/http"
	"strings"

	"github.com/gobwas/glob"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// RequiresAuth reports whether path needs credentials given the exempt
// patterns.
//
// An empty path always requires auth, as does an empty exemption list.
// Paths and exact exemption entries are normalized by stripping one
// trailing '/'. An entry ending in '*' exempts every path with that
// prefix; wildcard entries are checked before the exact comparison and
// the first matching entry wins.
func RequiresAuth(path string, exempt []string) bool {
	if path == "" {
		return true
	}
	if len(exempt) == 0 {
		return true
	}

	normalized := strings.TrimSuffix(path, "/")
	for _, entry := range exempt {
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			g, err := glob.Compile(glob.QuoteMeta(prefix) + "*")
			if err != nil {
				continue
			}
			if g.Match(normalized) {
				return false
			}
			continue
		}
		if normalized == strings.TrimSuffix(entry, "/") {
			return false
		}
	}
	return true
}

// Credential is a transient (scheme, payload) pair extracted from a
// request. Never persisted.
type Credential struct {
	Scheme  string
	Payload string
}

// Policy extracts credentials from a request and resolves them to a
// principal. Malformed or missing credentials yield nil results, never
// errors; only store-level failures surface as errors.
type Policy interface {
	// ExtractIdentity returns the credential carried by the request,
	// or nil if none is present.
	ExtractIdentity(r *http.Request) *Credential

	// ResolvePrincipal returns the authenticated user for the
	// request, or nil when the credential is absent, malformed, or
	// wrong.
	ResolvePrincipal(ctx context.Context, r *http.Request) (*auth.User, error)
}

// NoopPolicy is the base variant used when no scheme is configured: it
// never extracts a credential and never resolves a principal, so every
// non-exempt path is unauthorized.
type NoopPolicy struct{}

// NewNoopPolicy creates a NoopPolicy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{}
}

// ExtractIdentity always returns nil.
func (*NoopPolicy) ExtractIdentity(*http.Request) *Credential {
	return nil
}

// ResolvePrincipal always returns no principal.
func (*NoopPolicy) ResolvePrincipal(context.Context, *http.Request) (*auth.User, error) {
	return nil, nil
}
