// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "not a url ::")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestNewPool_ContextCancelled(t *testing.T) {
	// A cancelled context stops the ping retry loop immediately instead
	// of backing off for the full schedule.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := NewPool(ctx, "postgres://nobody@127.0.0.1:1/gatehouse")
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}
