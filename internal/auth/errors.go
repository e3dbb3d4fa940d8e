// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when registering an email that is taken.
var ErrAlreadyExists = errors.New("already exists")

// ErrUserNotFound is returned when a password reset is requested for an
// unknown email.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidToken is returned when a reset token is unknown or already
// consumed.
var ErrInvalidToken = errors.New("invalid reset token")

// ErrUnknownField is returned when a store filter or update names a
// field outside the user field allow-list.
var ErrUnknownField = errors.New("unknown user field")
