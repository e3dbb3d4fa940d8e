// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SchemeSession tags credentials carried as a session cookie or the
// X-Session-ID header.
const SchemeSession = "Session"

// Session transport names.
const (
	SessionCookieName = "session_id"
	SessionHeaderName = "X-Session-ID"
)

// SessionResolver maps an opaque session identifier to its owning
// user. Returns auth.ErrNotFound for an unknown identifier.
type SessionResolver func(ctx context.Context, sessionID string) (*auth.User, error)

// SessionPolicy resolves principals from opaque session identifiers
// issued at login.
type SessionPolicy struct {
	resolver SessionResolver
}

// NewSessionPolicy creates a SessionPolicy around the given resolver.
func NewSessionPolicy(resolver SessionResolver) (*SessionPolicy, error) {
	if resolver == nil {
		return nil, oops.Code("ACCESS_INVALID_DEPS").Errorf("session resolver is required")
	}
	return &SessionPolicy{resolver: resolver}, nil
}

// ExtractIdentity reads the session cookie, falling back to the
// X-Session-ID header for cookie-less API clients.
func (p *SessionPolicy) ExtractIdentity(r *http.Request) *Credential {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return &Credential{Scheme: SchemeSession, Payload: c.Value}
	}
	if v := r.Header.Get(SessionHeaderName); v != "" {
		return &Credential{Scheme: SchemeSession, Payload: v}
	}
	return nil
}

// ResolvePrincipal looks up the session owner. An unknown session is a
// nil principal, not an error.
func (p *SessionPolicy) ResolvePrincipal(ctx context.Context, r *http.Request) (*auth.User, error) {
	cred := p.ExtractIdentity(r)
	if cred == nil {
		return nil, nil
	}

	user, err := p.resolver(ctx, cred.Payload)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("ACCESS_RESOLVE_FAILED").
			With("scheme", SchemeSession).
			Wrap(err)
	}
	return user, nil
}
