// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides the credential and session lifecycle for Gatehouse.
//
// # Domain Types
//
// User is the persisted account record. It carries the argon2id password
// hash plus the at-most-one live session identifier and single-use reset
// token. Records are created through Service.Register; direct struct
// initialization bypasses hashing and uniqueness checks.
//
// # Services
//
// Service coordinates all account operations: registration, login,
// session issue/resolve/destroy, and the password reset flow. It is
// constructed once per process with NewService and passed explicitly to
// request handlers.
//
// # Stores
//
// UserRepository is the persistence contract. Implementations live in
// the postgres and memory subpackages. Filters and updates are
// restricted to a fixed field allow-list; unknown fields are a caller
// error, not a silent no-op.
package auth
