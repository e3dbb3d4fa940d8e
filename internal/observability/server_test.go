// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func stopLater(t *testing.T, server *Server) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := NewServer("127.0.0.1:0", func() bool { return true })

	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	stopLater(t, server)

	addr := server.Addr()
	if addr == "" {
		t.Fatal("server address is empty")
	}

	status, body := get(t, "http://"+addr+"/metrics")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}

	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("expected Prometheus exposition format")
	}
	if !strings.Contains(body, "go_") {
		t.Error("expected go_* metrics")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process_* metrics")
	}

	// Counters only appear once a sample exists.
	metrics := server.Metrics()
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	metrics.LoginsTotal.WithLabelValues("invalid").Inc()
	metrics.SessionsTotal.WithLabelValues("create").Inc()
	metrics.ResetsTotal.WithLabelValues("request", "ok").Inc()
	metrics.RequestsTotal.WithLabelValues("status", "200").Inc()

	_, body = get(t, "http://"+addr+"/metrics")
	for _, name := range []string{
		"gatehouse_registrations_total",
		"gatehouse_logins_total",
		"gatehouse_sessions_total",
		"gatehouse_password_resets_total",
		"gatehouse_requests_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected metric %s in output", name)
		}
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	ready := true
	server := NewServer("127.0.0.1:0", func() bool { return ready })

	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	stopLater(t, server)

	addr := server.Addr()

	status, _ := get(t, "http://"+addr+"/healthz/liveness")
	if status != http.StatusOK {
		t.Errorf("liveness: expected 200, got %d", status)
	}

	status, _ = get(t, "http://"+addr+"/healthz/readiness")
	if status != http.StatusOK {
		t.Errorf("readiness: expected 200, got %d", status)
	}

	ready = false
	status, _ = get(t, "http://"+addr+"/healthz/readiness")
	if status != http.StatusServiceUnavailable {
		t.Errorf("readiness: expected 503 when not ready, got %d", status)
	}
}

func TestServer_StartStop(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	if _, err := server.Start(); err == nil {
		t.Error("expected error starting an already running server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}

	// Stopping twice is a no-op.
	if err := server.Stop(ctx); err != nil {
		t.Errorf("second stop should be a no-op, got %v", err)
	}
}
