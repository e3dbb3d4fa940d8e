// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package access

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SchemeBasic tags credentials carried as "Authorization: Basic ...".
const SchemeBasic = "Basic"

const basicPrefix = SchemeBasic + " "

// ExtractSchemePayload returns the payload following the "Basic "
// prefix of an Authorization header value, or "" when the header is
// empty or carries a different scheme.
func ExtractSchemePayload(header string) string {
	rest, ok := strings.CutPrefix(header, basicPrefix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}

// DecodePayload decodes a strictly padded standard-alphabet base64
// payload and interprets the bytes as UTF-8 text. Returns "" on
// malformed base64, non-canonical encodings, or invalid UTF-8; both
// failures are recoverable and treated as "no credential".
func DecodePayload(payload string) string {
	if payload == "" {
		return ""
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return ""
	}
	if !utf8.Valid(raw) {
		return ""
	}
	return string(raw)
}

// SplitCredentials splits decoded text on the first ':' into identity
// and secret. Only the first separator is significant, so secrets may
// contain ':'. Returns ("", "", false) when no separator is present.
func SplitCredentials(decoded string) (identity, secret string, ok bool) {
	return strings.Cut(decoded, ":")
}

// BasicResolver maps a (identity, secret) pair to a user. Returns
// (nil, nil) for a lookup miss or password mismatch; errors are
// reserved for store failures.
type BasicResolver func(ctx context.Context, identity, secret string) (*auth.User, error)

// BasicPolicy resolves principals from Basic credentials.
type BasicPolicy struct {
	resolver BasicResolver
}

// NewBasicPolicy creates a BasicPolicy around the given resolver.
func NewBasicPolicy(resolver BasicResolver) (*BasicPolicy, error) {
	if resolver == nil {
		return nil, oops.Code("ACCESS_INVALID_DEPS").Errorf("credential resolver is required")
	}
	return &BasicPolicy{resolver: resolver}, nil
}

// ExtractIdentity reads the Authorization header and returns the Basic
// credential it carries, or nil if the header is absent or holds a
// different scheme.
func (p *BasicPolicy) ExtractIdentity(r *http.Request) *Credential {
	payload := ExtractSchemePayload(r.Header.Get("Authorization"))
	if payload == "" {
		return nil
	}
	return &Credential{Scheme: SchemeBasic, Payload: payload}
}

// ResolvePrincipal composes extraction, decoding, splitting, and the
// resolver lookup. The first failing stage yields (nil, nil); only
// resolver infrastructure failures propagate.
func (p *BasicPolicy) ResolvePrincipal(ctx context.Context, r *http.Request) (*auth.User, error) {
	cred := p.ExtractIdentity(r)
	if cred == nil {
		return nil, nil
	}

	decoded := DecodePayload(cred.Payload)
	if decoded == "" {
		return nil, nil
	}

	identity, secret, ok := SplitCredentials(decoded)
	if !ok {
		return nil, nil
	}

	user, err := p.resolver(ctx, identity, secret)
	if err != nil {
		return nil, oops.Code("ACCESS_RESOLVE_FAILED").
			With("scheme", SchemeBasic).
			Wrap(err)
	}
	return user, nil
}
