// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argonTime    = 1         // iterations
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4         // parallelism
	argonSaltLen = 16        // salt length in bytes
	argonKeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides one-way salted password hashing.
type PasswordHasher interface {
	// Hash produces a salted hash of the password. Two calls on the
	// same input produce different outputs.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an
	// error when the stored hash is unparseable.
	Verify(password, hash string) (bool, error)
}

// Argon2idHasher implements PasswordHasher using argon2id. Hashes are
// stored in PHC string format so the parameters travel with the hash.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password with a fresh random salt.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify checks if the password matches the PHC-encoded hash using a
// constant-time comparison.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	salt, key, time, memory, threads, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// parsePHC decodes a $argon2id$... PHC string into its salt, key, and
// parameters.
func parsePHC(encodedHash string) (salt, key []byte, time, memory uint32, threads uint8, err error) {
	fail := func(e error) ([]byte, []byte, uint32, uint32, uint8, error) {
		return nil, nil, 0, 0, 0, e
	}

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return fail(oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format"))
	}
	if parts[1] != "argon2id" {
		return fail(oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1]))
	}

	var version int
	if _, scanErr := fmt.Sscanf(parts[2], "v=%d", &version); scanErr != nil {
		return fail(oops.Code("AUTH_INVALID_HASH").Wrap(scanErr))
	}

	var m, t, p uint32
	if _, scanErr := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); scanErr != nil {
		return fail(oops.Code("AUTH_INVALID_HASH").Wrap(scanErr))
	}
	if p > 255 {
		return fail(oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", p))
	}

	salt, decErr := base64.RawStdEncoding.DecodeString(parts[4])
	if decErr != nil {
		return fail(oops.Code("AUTH_INVALID_HASH").Wrap(decErr))
	}
	key, decErr = base64.RawStdEncoding.DecodeString(parts[5])
	if decErr != nil {
		return fail(oops.Code("AUTH_INVALID_HASH").Wrap(decErr))
	}
	if len(key) == 0 || len(key) > 1<<30 {
		return fail(oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key)))
	}

	return salt, key, t, m, uint8(p), nil
}
