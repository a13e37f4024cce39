package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionResponse is returned from both register and login.
type sessionResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Cash     string `json:"cash"`
	Token    string `json:"token"`
}

// HandleRegister handles POST /api/v1/register.
func (s *Service) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, token, err := s.Register(r.Context(), req.Username, req.Password, req.ConfirmPassword)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrDuplicateUsername):
		writeError(w, "username already exists", http.StatusConflict)
		return
	case err != nil:
		writeError(w, "registration failed", http.StatusInternalServerError)
		return
	}

	slog.Info("user registered", "user", u.ID, "username", u.Username)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sessionResponse{
		UserID:   u.ID,
		Username: u.Username,
		Cash:     u.Cash.String(),
		Token:    token,
	})
}

// HandleLogin handles POST /api/v1/login.
func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, token, err := s.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		writeError(w, "invalid username or password", http.StatusUnauthorized)
		return
	case err != nil:
		writeError(w, "login failed", http.StatusInternalServerError)
		return
	}

	slog.Info("user logged in", "user", u.ID, "username", u.Username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse{
		UserID:   u.ID,
		Username: u.Username,
		Cash:     u.Cash.String(),
		Token:    token,
	})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
