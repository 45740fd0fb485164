package web

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/auth"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if !s.Auth.Enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, http.StatusOK, "login.html", &PageData{Title: "Sign in", AuthEnabled: true})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.Auth.Enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	password := r.FormValue("password")
	if password == "" {
		s.Templates.Render(w, http.StatusBadRequest, "login.html", &PageData{
			Title:       "Sign in",
			AuthEnabled: true,
			Error:       "Enter the password.",
		})
		return
	}

	ok, err := auth.CheckPassword(s.Auth.PasswordHash, password)
	if err != nil {
		slog.Error("failed to check password", "error", err)
	}
	if !ok {
		s.Templates.Render(w, http.StatusUnauthorized, "login.html", &PageData{
			Title:       "Sign in",
			AuthEnabled: true,
			Error:       "Wrong password.",
		})
		return
	}

	token, err := auth.GenerateToken(s.Auth.Secret, auth.Operator)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		s.Templates.Render(w, http.StatusInternalServerError, "login.html", &PageData{
			Title:       "Sign in",
			AuthEnabled: true,
			Error:       "Sign in failed.",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry.Seconds()),
	})

	slog.Info("operator signed in", "remote", r.RemoteAddr)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
