package api

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/auth"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/config"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Auth config.AuthConfig
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.Enabled() {
		jsonError(w, http.StatusNotFound, CodeNotFound, "authentication is not enabled")
		return
	}

	var req LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxInputSize)
	if err := decodeJSON(r, &req); err != nil || req.Password == "" {
		jsonError(w, http.StatusBadRequest, CodeValidation, "password required")
		return
	}

	ok, err := auth.CheckPassword(h.Auth.PasswordHash, req.Password)
	if err != nil {
		slog.Error("failed to check password", "error", err)
		jsonError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}
	if !ok {
		slog.Warn("login failed", "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.Auth.Secret, auth.Operator)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, CodeInternal, "failed to generate token")
		return
	}

	slog.Info("operator logged in", "remote", r.RemoteAddr)
	jsonResponse(w, http.StatusOK, LoginResponse{Token: token})
}
