// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package postgres implements the auth record store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository needs.
// Satisfied by both *pgxpool.Pool and pgxmock.PgxPoolIface.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements auth.UserRepository using PostgreSQL.
//
// Uniqueness of email, session_id, and reset_token is enforced by
// unique indexes, so Insert is atomic with respect to the duplicate
// check and concurrent registrations cannot both succeed.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = "id, email, hashed_password, session_id, reset_token, created_at, updated_at"

// FindOne returns the first record matching the filter.
func (r *UserRepository) FindOne(ctx context.Context, filter auth.Filter) (*auth.User, error) {
	if err := auth.ValidateFields(filter); err != nil {
		return nil, err
	}

	where, args := buildWhere(filter)
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		LIMIT 1
	`, userColumns, where), args...)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			Wrap(err)
	}
	return user, nil
}

// Insert creates a new record with no session and no pending reset.
func (r *UserRepository) Insert(ctx context.Context, email, passwordHash string) (*auth.User, error) {
	now := time.Now().UTC()
	user := &auth.User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID.String(), user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("USER_EXISTS").
				With("email", email).
				Wrap(auth.ErrAlreadyExists)
		}
		return nil, oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// Update applies changes to the record with the given id.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, changes auth.Changes) error {
	if err := auth.ValidateFields(changes); err != nil {
		return err
	}

	set, args := buildSet(changes)
	args = append(args, id.String())

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE users
		SET %s, updated_at = now()
		WHERE id = $%d
	`, set, len(args)), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_UPDATE_CONFLICT").
				With("id", id.String()).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// buildWhere renders filter fields as "col = $n" clauses joined by AND.
// Fields are sorted so the generated SQL is deterministic.
func buildWhere(filter auth.Filter) (string, []any) {
	fields := sortedFields(filter)

	clauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, f := range fields {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", string(f), i+1))
		args = append(args, normalizeValue(f, filter[f]))
	}
	return strings.Join(clauses, " AND "), args
}

// buildSet renders change fields as "col = $n" assignments.
func buildSet(changes auth.Changes) (string, []any) {
	fields := sortedFields(changes)

	assigns := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, f := range fields {
		assigns = append(assigns, fmt.Sprintf("%s = $%d", string(f), i+1))
		args = append(args, normalizeValue(f, changes[f]))
	}
	return strings.Join(assigns, ", "), args
}

func sortedFields[M ~map[auth.Field]any](m M) []auth.Field {
	fields := make([]auth.Field, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// normalizeValue converts domain values to SQL parameter types.
// ULIDs are stored as their string form; nil clears a nullable column.
func normalizeValue(_ auth.Field, v any) any {
	switch val := v.(type) {
	case ulid.ULID:
		return val.String()
	case *string:
		if val == nil {
			return nil
		}
		return *val
	default:
		return v
	}
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	var idStr string
	if err := row.Scan(&idStr, &u.Email, &u.PasswordHash, &u.SessionID, &u.ResetToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	u.ID = id
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
