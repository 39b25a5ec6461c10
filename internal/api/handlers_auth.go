package api

import (
	"errors"
	"net/http"

	"github.com/trackfit-dev/trackfit/internal/auth"
	"github.com/trackfit-dev/trackfit/internal/realtime"
	"github.com/trackfit-dev/trackfit/internal/store"
)

type credentials struct {
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Password string  `json:"password"`
}

// sessionUser is the public view of an account returned on signup/login.
type sessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(req.Password) < auth.MinPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 4 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		s.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		s.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	s.setSessionCookie(w, token)

	s.notifier.NotifyAdmins(realtime.UpdateUserRegistered, user)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "account created",
		"user":    sessionUser{ID: user.ID, Username: user.Username},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		s.logger.Error("fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		s.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	s.setSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged in",
		"user":    sessionUser{ID: user.ID, Username: user.Username},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionUser{ID: id.UserID, Username: id.Username})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}
	if len(req.NewPassword) < auth.MinPasswordLen {
		writeError(w, http.StatusBadRequest, "new password must be at least 4 characters")
		return
	}

	user, err := s.store.UserByID(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, s.config.BcryptCost)
	if err != nil {
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), id.UserID, hash); err != nil {
		s.logger.Error("update password", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
