// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package memory implements the auth record store in process memory.
// Intended for tests and local development.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// UserRepository implements auth.UserRepository with a mutex-guarded
// map. The mutex spans each read-modify-write, so per-record mutations
// are linearizable and concurrent duplicate inserts cannot both
// succeed.
type UserRepository struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User
}

// NewUserRepository creates an empty in-memory repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]*auth.User)}
}

// FindOne returns a copy of the first record matching the filter.
func (r *UserRepository) FindOne(_ context.Context, filter auth.Filter) (*auth.User, error) {
	if err := auth.ValidateFields(filter); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if matches(u, filter) {
			return copyUser(u), nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// Insert creates a new record with no session and no pending reset.
func (r *UserRepository) Insert(_ context.Context, email, passwordHash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return nil, oops.Code("USER_EXISTS").
				With("email", email).
				Wrap(auth.ErrAlreadyExists)
		}
	}

	now := time.Now().UTC()
	user := &auth.User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	return copyUser(user), nil
}

// Update applies changes to the record with the given id.
func (r *UserRepository) Update(_ context.Context, id ulid.ULID, changes auth.Changes) error {
	if err := auth.ValidateFields(changes); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	for f, v := range changes {
		switch f {
		case auth.FieldEmail:
			if s, ok := v.(string); ok {
				user.Email = s
			}
		case auth.FieldPasswordHash:
			if s, ok := v.(string); ok {
				user.PasswordHash = s
			}
		case auth.FieldSessionID:
			user.SessionID = stringPtr(v)
		case auth.FieldResetToken:
			user.ResetToken = stringPtr(v)
		case auth.FieldID:
			// The primary key is immutable here.
		}
	}
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// matches reports whether the record satisfies every filter field.
func matches(u *auth.User, filter auth.Filter) bool {
	for f, v := range filter {
		switch f {
		case auth.FieldID:
			switch id := v.(type) {
			case ulid.ULID:
				if u.ID != id {
					return false
				}
			case string:
				if u.ID.String() != id {
					return false
				}
			default:
				return false
			}
		case auth.FieldEmail:
			if s, ok := v.(string); !ok || !strings.EqualFold(u.Email, s) {
				return false
			}
		case auth.FieldPasswordHash:
			if s, ok := v.(string); !ok || u.PasswordHash != s {
				return false
			}
		case auth.FieldSessionID:
			if !matchNullable(u.SessionID, v) {
				return false
			}
		case auth.FieldResetToken:
			if !matchNullable(u.ResetToken, v) {
				return false
			}
		}
	}
	return true
}

func matchNullable(field *string, v any) bool {
	want := stringPtr(v)
	if want == nil {
		return field == nil
	}
	return field != nil && *field == *want
}

// stringPtr normalizes a filter/change value to *string. nil and typed
// nil both mean "no value".
func stringPtr(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case *string:
		return val
	case string:
		return &val
	default:
		return nil
	}
}

func copyUser(u *auth.User) *auth.User {
	out := *u
	if u.SessionID != nil {
		s := *u.SessionID
		out.SessionID = &s
	}
	if u.ResetToken != nil {
		s := *u.ResetToken
		out.ResetToken = &s
	}
	return &out
}
