// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy of a session or reset token.
// 32 bytes = 64 hex chars.
const TokenBytes = 32

// TokenSource produces opaque unguessable identifiers for sessions and
// reset tokens.
type TokenSource interface {
	// NewToken returns a fresh opaque token.
	NewToken() (string, error)
}

// RandomTokenSource implements TokenSource with crypto/rand.
type RandomTokenSource struct{}

// NewRandomTokenSource creates a new RandomTokenSource.
func NewRandomTokenSource() *RandomTokenSource {
	return &RandomTokenSource{}
}

// NewToken returns TokenBytes of cryptographic randomness, hex encoded.
func (*RandomTokenSource) NewToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}
