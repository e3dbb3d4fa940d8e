// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads and validates service configuration.
//
// Precedence, lowest to highest: built-in defaults, YAML config file,
// command-line flags. The merged configuration is validated against a
// JSON Schema generated from the Config struct before use.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" json:"server,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
}

// ServerConfig configures the API HTTP listener.
type ServerConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"minLength=1"`
}

// MetricsConfig configures the observability listener.
// An empty addr disables the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// DatabaseConfig configures PostgreSQL connectivity.
type DatabaseConfig struct {
	URL string `koanf:"url" json:"url,omitempty"`
}

// AuthConfig selects the credential scheme and exempt routes.
type AuthConfig struct {
	// Mode is the credential extraction strategy: "basic" resolves
	// Authorization: Basic headers, "session" resolves session
	// identifiers, "none" never resolves a principal.
	Mode string `koanf:"mode" json:"mode,omitempty" jsonschema:"enum=basic,enum=session,enum=none"`

	// ExemptPaths bypass authentication. Entries ending in '*' match
	// by prefix.
	ExemptPaths []string `koanf:"exempt_paths" json:"exempt_paths,omitempty"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Auth: AuthConfig{
			Mode: "session",
			ExemptPaths: []string{
				"/api/v1/status",
				"/api/v1/users",
				"/api/v1/sessions",
				"/api/v1/reset_password",
			},
		},
		Log: LogConfig{Format: "json"},
	}
}

// Load merges defaults, the optional YAML file at path, and the given
// flag set, then validates the result.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, oops.Code("CONFIG_READ_FAILED").
				With("path", path).
				Wrap(err)
		}
		if err := ValidateSchema(raw); err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_PARSE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks constraints the schema cannot express on the merged
// configuration.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr cannot be empty")
	}
	switch c.Auth.Mode {
	case "basic", "session", "none":
	default:
		return oops.Code("CONFIG_INVALID").
			With("mode", c.Auth.Mode).
			Errorf("auth.mode must be basic, session, or none")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be json or text")
	}
	return nil
}
