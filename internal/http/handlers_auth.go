package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"presupuesto/internal/auth"
	"presupuesto/internal/core"
	applog "presupuesto/internal/log"
)

// defaultProfile is the profile used when a request names none.
const defaultProfile = "Main"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = sanitizeInput(req.Username)
	if err := s.users.Register(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			writeError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "username and password are required")
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Register failed", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "User registered")
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = sanitizeInput(req.Username)
	if err := s.users.Authenticate(req.Username, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.Issue(req.Username)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// authenticated wraps a handler with bearer token verification on top of the
// common middleware. The verified username is stored in the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return s.withSecurityHeaders(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		username, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, username)
		next(w, r.WithContext(ctx))
	})
}

// scopeFrom builds the (user, profile) scope for an authenticated request.
// The profile comes from the X-Profile header or the profile query parameter.
func scopeFrom(r *http.Request) core.Scope {
	username, _ := r.Context().Value(usernameKey).(string)

	profile := sanitizeInput(r.Header.Get("X-Profile"))
	if profile == "" {
		profile = sanitizeInput(r.URL.Query().Get("profile"))
	}
	if profile == "" {
		profile = defaultProfile
	}

	return core.Scope{User: username, Profile: profile}
}
