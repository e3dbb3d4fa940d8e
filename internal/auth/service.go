// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides account lifecycle operations.
//
// Per-user session and reset-token mutations are serialized by the
// underlying store: updates are atomic per record and uniqueness is
// store-enforced. Password hashing is CPU-bound and always happens
// before the store is touched, never inside a store critical section.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenSource
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenSource) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("token source is required")
	}
	return &Service{users: users, hasher: hasher, tokens: tokens}, nil
}

// dummyPasswordHash is verified against when a user doesn't exist so a
// login miss costs the same as a password mismatch. This is NOT a real
// credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new account with a freshly salted password hash,
// no session, and no pending reset.
// Returns ErrAlreadyExists if the email is taken. The uniqueness check
// is delegated to the store's insert so concurrent duplicate
// registrations cannot both succeed.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if email == "" {
		return nil, oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.users.Insert(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, oops.Code("AUTH_USER_EXISTS").
				With("email", email).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return user, nil
}

// Login reports whether email and password name a valid account.
// A missing user and a bad password are indistinguishable to the
// caller, and both cost one hash verification. Login never mutates
// state; only store failures surface as errors.
func (s *Service) Login(ctx context.Context, email, password string) (bool, error) {
	user, lookupErr := s.users.FindOne(ctx, Filter{FieldEmail: email})

	targetHash := dummyPasswordHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Verify against the dummy hash below to keep timing flat.
	default:
		return false, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return false, nil
		}
		return false, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	return exists && valid, nil
}

// ResolveBasic returns the user matching email and password, or
// (nil, nil) when either is wrong. Used as the principal resolver for
// the Basic credential policy.
func (s *Service) ResolveBasic(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.FindOne(ctx, Filter{FieldEmail: email})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		return nil, nil
	}
	return user, nil
}

// CreateSession issues a fresh session token for the account with the
// given email, replacing any prior session so at most one is live.
// Returns ErrNotFound if the email is unknown.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindOne(ctx, Filter{FieldEmail: email})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	if err := s.users.Update(ctx, user.ID, Changes{FieldSessionID: &token}); err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return token, nil
}

// ResolveSession returns the user owning the given session identifier.
// Returns ErrNotFound for an empty or unknown identifier. Read-only.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*User, error) {
	if sessionID == "" {
		return nil, oops.Code("AUTH_SESSION_INVALID").Wrap(ErrNotFound)
	}

	user, err := s.users.FindOne(ctx, Filter{FieldSessionID: sessionID})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code("AUTH_SESSION_RESOLVE_FAILED").
			With("operation", "find user by session").
			Wrap(err)
	}
	return user, nil
}

// DestroySession clears the session for the given user. Idempotent: a
// zero or unknown user id is a no-op.
func (s *Service) DestroySession(ctx context.Context, userID ulid.ULID) error {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil
	}

	err := s.users.Update(ctx, userID, Changes{FieldSessionID: nil})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_SESSION_DESTROY_FAILED").
			With("operation", "clear session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// RequestPasswordReset issues a fresh single-use reset token for the
// account with the given email, replacing any pending token.
// Returns ErrUserNotFound if the email is unknown.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindOne(ctx, Filter{FieldEmail: email})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("AUTH_RESET_UNKNOWN_EMAIL").
				With("email", email).
				Wrap(ErrUserNotFound)
		}
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.users.Update(ctx, user.ID, Changes{FieldResetToken: &token}); err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "persist reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return token, nil
}

// ConsumePasswordReset replaces the password of the account holding the
// given reset token and clears the token in the same update, so a
// consumed token is never reusable.
// Returns ErrInvalidToken for an unknown or already-consumed token.
func (s *Service) ConsumePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return oops.Code("AUTH_RESET_TOKEN_EMPTY").Wrap(ErrInvalidToken)
	}

	user, err := s.users.FindOne(ctx, Filter{FieldResetToken: resetToken})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return oops.Code("AUTH_RESET_CONSUME_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_RESET_CONSUME_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	err = s.users.Update(ctx, user.ID, Changes{
		FieldPasswordHash: hash,
		FieldResetToken:   nil,
	})
	if err != nil {
		return oops.Code("AUTH_RESET_CONSUME_FAILED").
			With("operation", "replace password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}
