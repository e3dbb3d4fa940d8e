// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/access"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/httpapi"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the HTTP API and the observability endpoints. Without a
configured database URL the service runs against an in-memory store,
which is intended for development only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file path")
	cmd.Flags().String("server.addr", config.Default().Server.Addr, "API listen address")
	cmd.Flags().String("metrics.addr", config.Default().Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection string (empty = in-memory store)")
	cmd.Flags().String("auth.mode", config.Default().Auth.Mode, "credential scheme (basic, session, or none)")
	cmd.Flags().String("log.format", config.Default().Log.Format, "log format (json or text)")

	return cmd
}

// runServe starts the service and blocks until shutdown.
func runServe(ctx context.Context, cfg config.Config) error {
	logging.SetDefault("gatehouse", version, cfg.Log.Format)
	logger := slog.Default()

	logger.Info("starting gatehouse",
		"addr", cfg.Server.Addr,
		"auth_mode", cfg.Auth.Mode,
		"log_format", cfg.Log.Format,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := auth.NewService(users, auth.NewArgon2idHasher(), auth.NewRandomTokenSource())
	if err != nil {
		return err
	}

	policy, err := buildPolicy(cfg.Auth.Mode, svc)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	var obsErrCh <-chan error
	var obs *observability.Server
	if cfg.Metrics.Addr != "" {
		obs = observability.NewServer(cfg.Metrics.Addr, func() bool { return true })
		metrics = obs.Metrics()
		obsErrCh, err = obs.Start()
		if err != nil {
			return err
		}
		defer stopServer(obs.Stop, logger, "observability")
	}

	api, err := httpapi.NewServer(httpapi.Options{
		Addr:        cfg.Server.Addr,
		Service:     svc,
		Policy:      policy,
		ExemptPaths: cfg.Auth.ExemptPaths,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	apiErrCh, err := api.Start()
	if err != nil {
		return err
	}
	defer stopServer(api.Stop, logger, "api")

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return nil
	case serveErr := <-apiErrCh:
		if serveErr != nil {
			return oops.Code("API_SERVER_FAILED").Wrap(serveErr)
		}
		return nil
	case serveErr := <-obsErrCh:
		if serveErr != nil {
			return oops.Code("OBSERVABILITY_SERVER_FAILED").Wrap(serveErr)
		}
		return nil
	}
}

// buildRepository selects the record store from configuration.
func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.UserRepository, func(), error) {
	if cfg.Database.URL == "" {
		logger.Warn("no database configured, using in-memory store")
		return memory.NewUserRepository(), func() {}, nil
	}

	pool, err := store.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected")
	return authpg.NewUserRepository(pool), pool.Close, nil
}

// buildPolicy selects the credential extraction strategy.
func buildPolicy(mode string, svc *auth.Service) (access.Policy, error) {
	switch mode {
	case "basic":
		return access.NewBasicPolicy(svc.ResolveBasic)
	case "session":
		return access.NewSessionPolicy(svc.ResolveSession)
	case "none":
		return access.NewNoopPolicy(), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("mode", mode).
			Errorf("unknown auth mode")
	}
}

func stopServer(stop func(context.Context) error, logger *slog.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		errutil.LogError(logger, name+" server shutdown failed", err)
	}
}
