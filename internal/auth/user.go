// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents an account record.
//
// Email is the identity key and unique across all records. SessionID
// and ResetToken are nil unless a session or reset is live; when
// non-nil each is unique across all records.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	SessionID    *string
	ResetToken   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSession returns true if the user has a live session.
func (u *User) HasSession() bool {
	return u.SessionID != nil && *u.SessionID != ""
}

// HasPendingReset returns true if a reset token is outstanding.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil && *u.ResetToken != ""
}

// Field names a column of the user record. Store filters and updates
// accept only the fields enumerated below.
type Field string

// The user record field allow-list.
const (
	FieldID           Field = "id"
	FieldEmail        Field = "email"
	FieldPasswordHash Field = "hashed_password"
	FieldSessionID    Field = "session_id"
	FieldResetToken   Field = "reset_token"
)

var knownFields = map[Field]struct{}{
	FieldID:           {},
	FieldEmail:        {},
	FieldPasswordHash: {},
	FieldSessionID:    {},
	FieldResetToken:   {},
}

// Filter selects a record by field values.
type Filter map[Field]any

// Changes describes field updates to apply to a record. A nil value
// clears a nullable field.
type Changes map[Field]any

// ValidateFields rejects maps that are empty or name a field outside
// the allow-list.
func ValidateFields[M ~map[Field]any](m M) error {
	if len(m) == 0 {
		return oops.Code("AUTH_EMPTY_FIELDS").Errorf("at least one field is required")
	}
	for f := range m {
		if _, ok := knownFields[f]; !ok {
			return oops.Code("AUTH_UNKNOWN_FIELD").
				With("field", string(f)).
				Wrap(ErrUnknownField)
		}
	}
	return nil
}

// UserRepository is the record store contract.
//
// Implementations guarantee that each write is visible to subsequent
// reads on the same handle, and that Insert and Update are atomic per
// record so the uniqueness invariants hold under concurrent callers.
type UserRepository interface {
	// FindOne returns the first record matching the filter.
	// Returns ErrUnknownField for a filter outside the allow-list and
	// ErrNotFound when no record matches.
	FindOne(ctx context.Context, filter Filter) (*User, error)

	// Insert creates a new record with no session and no pending
	// reset. Returns ErrAlreadyExists if the email is taken.
	Insert(ctx context.Context, email, passwordHash string) (*User, error)

	// Update applies changes to the record with the given id.
	// Returns ErrUnknownField for changes outside the allow-list and
	// ErrNotFound when the record does not exist.
	Update(ctx context.Context, id ulid.ULID, changes Changes) error
}
