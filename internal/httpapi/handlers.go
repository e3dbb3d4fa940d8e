// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/access"
	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email       string `json:"email"`
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

// handleStatus reports service liveness to unauthenticated callers.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// handleRegister creates a new account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}

	user, err := s.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			s.countRegistration("exists")
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		s.countRegistration("error")
		errutil.LogError(s.logger, "registration failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.countRegistration("ok")
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID.String(),
		"email": user.Email,
	})
}

// handleLogin verifies credentials and issues a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}

	valid, err := s.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.countLogin("error")
		errutil.LogError(s.logger, "login failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !valid {
		s.countLogin("invalid")
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := s.svc.CreateSession(r.Context(), req.Email)
	if err != nil {
		s.countLogin("error")
		errutil.LogError(s.logger, "session creation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.countLogin("ok")
	if s.metrics != nil {
		s.metrics.SessionsTotal.WithLabelValues("create").Inc()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     access.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"email":   req.Email,
		"message": "logged in",
	})
}

// handleLogout destroys the session carried by the request.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	user, err := s.svc.ResolveSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		errutil.LogError(s.logger, "session resolution failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.svc.DestroySession(r.Context(), user.ID); err != nil {
		errutil.LogError(s.logger, "session destruction failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.metrics != nil {
		s.metrics.SessionsTotal.WithLabelValues("destroy").Inc()
	}
	http.SetCookie(w, &http.Cookie{
		Name:   access.SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleProfile returns the authenticated user's identity.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := PrincipalFrom(r.Context())
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

// handleResetRequest issues a reset token for a known email.
func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !readJSON(w, r, &req) {
		return
	}

	token, err := s.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.countReset("request", "unknown_email")
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		s.countReset("request", "error")
		errutil.LogError(s.logger, "reset request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.countReset("request", "ok")
	writeJSON(w, http.StatusOK, map[string]string{
		"email":       req.Email,
		"reset_token": token,
	})
}

// handleResetConsume replaces the password behind a valid reset token.
func (s *Server) handleResetConsume(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !readJSON(w, r, &req) {
		return
	}

	err := s.svc.ConsumePasswordReset(r.Context(), req.ResetToken, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			s.countReset("consume", "invalid_token")
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		s.countReset("consume", "error")
		errutil.LogError(s.logger, "reset consumption failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.countReset("consume", "ok")
	writeJSON(w, http.StatusOK, map[string]string{
		"email":   req.Email,
		"message": "Password updated",
	})
}

// sessionIDFrom extracts the session identifier from cookie or header.
func sessionIDFrom(r *http.Request) string {
	if c, err := r.Cookie(access.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(access.SessionHeaderName)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error is acceptable, client may disconnect
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
