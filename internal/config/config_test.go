// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatehouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "session", cfg.Auth.Mode)
	assert.Contains(t, cfg.Auth.ExemptPaths, "/api/v1/status")
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("no file and no flags yields defaults", func(t *testing.T) {
		cfg, err := config.Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
auth:
  mode: basic
  exempt_paths:
    - /api/v1/status
log:
  format: text
`)
		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, "basic", cfg.Auth.Mode)
		assert.Equal(t, []string{"/api/v1/status"}, cfg.Auth.ExemptPaths)
		assert.Equal(t, "text", cfg.Log.Format)
		// Untouched sections keep their defaults.
		assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	})

	t.Run("changed flags override the file", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
`)
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("server.addr", ":8080", "")
		require.NoError(t, flags.Set("server.addr", ":7070"))

		cfg, err := config.Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Server.Addr)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		assert.Error(t, err)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := writeConfigFile(t, "server: [unclosed")
		_, err := config.Load(path, nil)
		assert.Error(t, err)
	})

	t.Run("schema violation is an error", func(t *testing.T) {
		path := writeConfigFile(t, `
auth:
  mode: 42
`)
		_, err := config.Load(path, nil)
		assert.Error(t, err)
	})

	t.Run("invalid auth mode is an error", func(t *testing.T) {
		path := writeConfigFile(t, `
auth:
  mode: kerberos
`)
		_, err := config.Load(path, nil)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"defaults are valid", func(*config.Config) {}, false},
		{"empty server addr", func(c *config.Config) { c.Server.Addr = "" }, true},
		{"unknown auth mode", func(c *config.Config) { c.Auth.Mode = "bearer" }, true},
		{"unknown log format", func(c *config.Config) { c.Log.Format = "xml" }, true},
		{"basic mode", func(c *config.Config) { c.Auth.Mode = "basic" }, false},
		{"none mode", func(c *config.Config) { c.Auth.Mode = "none" }, false},
		{"empty metrics addr is allowed", func(c *config.Config) { c.Metrics.Addr = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
