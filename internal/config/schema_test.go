// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/config"
)

func TestGenerateSchema(t *testing.T) {
	raw, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	assert.Equal(t, "Gatehouse Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties")
	for _, section := range []string{"server", "metrics", "database", "auth", "log"} {
		assert.Contains(t, props, section)
	}
}

func TestValidateSchema(t *testing.T) {
	t.Run("accepts a full valid config", func(t *testing.T) {
		err := config.ValidateSchema([]byte(`
server:
  addr: ":8080"
metrics:
  addr: "127.0.0.1:9100"
database:
  url: "postgres://localhost/gatehouse"
auth:
  mode: session
  exempt_paths:
    - /api/v1/status
log:
  format: json
`))
		assert.NoError(t, err)
	})

	t.Run("accepts a partial config", func(t *testing.T) {
		err := config.ValidateSchema([]byte("server:\n  addr: \":9090\"\n"))
		assert.NoError(t, err)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		assert.Error(t, config.ValidateSchema(nil))
	})

	t.Run("rejects wrong value type", func(t *testing.T) {
		err := config.ValidateSchema([]byte("auth:\n  mode: 42\n"))
		assert.Error(t, err)
	})

	t.Run("rejects value outside the enum", func(t *testing.T) {
		err := config.ValidateSchema([]byte("log:\n  format: xml\n"))
		assert.Error(t, err)
	})

	t.Run("rejects unknown sections", func(t *testing.T) {
		err := config.ValidateSchema([]byte("telemetry:\n  enabled: true\n"))
		assert.Error(t, err)
	})
}
