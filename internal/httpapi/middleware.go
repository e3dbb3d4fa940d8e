// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gatehouse/gatehouse/internal/access"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

type principalKey struct{}

// WithPrincipal stores the authenticated user on the context.
func WithPrincipal(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, principalKey{}, user)
}

// PrincipalFrom returns the authenticated user for the request, or nil
// when the route was exempt from authentication.
func PrincipalFrom(ctx context.Context) *auth.User {
	user, _ := ctx.Value(principalKey{}).(*auth.User)
	return user
}

// requireAuth gates non-exempt routes behind the configured policy.
//
// A request with no credential at all is 401; a credential that fails
// to resolve is 403. Store failures are 500 and never silently
// swallowed.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !access.RequiresAuth(r.URL.Path, s.exempt) {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.policy.ResolvePrincipal(r.Context(), r)
		if err != nil {
			errutil.LogError(s.logger, "principal resolution failed", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == nil {
			if s.policy.ExtractIdentity(r) == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
	})
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// countRequests records one requests_total sample per request.
func (s *Server) countRequests(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.metrics != nil {
			s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	})
}
