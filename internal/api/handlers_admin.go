package api

import (
	"errors"
	"net/http"

	"github.com/trackfit-dev/trackfit/internal/auth"
	"github.com/trackfit-dev/trackfit/internal/realtime"
	"github.com/trackfit-dev/trackfit/internal/store"
)

// requireAdmin re-checks the admin bit in the store on every request. The
// bit can be revoked at runtime, so the token alone is not trusted for it.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := s.store.UserByID(r.Context(), id.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			s.logger.Error("fetch user", "error", err)
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAdminCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"isAdmin": true})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("load stats", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if users == nil {
		users = []store.UserSummary{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleAdminUserDetail(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	detail, err := s.store.UserDetail(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("user detail", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleAdminToggle(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	isAdmin := !user.IsAdmin
	if err := s.store.SetAdmin(r.Context(), userID, isAdmin); err != nil {
		s.logger.Error("toggle admin", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	payload := struct {
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
		IsAdmin  bool   `json:"isAdmin"`
	}{UserID: userID, Username: user.Username, IsAdmin: isAdmin}

	s.notifier.NotifyAdmins(realtime.UpdateAdminToggled, payload)
	if isAdmin {
		s.notifier.NotifyUser(userID, realtime.UpdateAdminRightsGranted, payload)
	} else {
		s.notifier.NotifyUser(userID, realtime.UpdateAdminRightsRevoked, payload)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "admin rights updated",
		"isAdmin": isAdmin,
	})
}

func (s *Server) handleAdminResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < auth.MinPasswordLen {
		writeError(w, http.StatusBadRequest, "new password must be at least 4 characters")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, s.config.BcryptCost)
	if err != nil {
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("reset password", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	userID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if userID == id.UserID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := s.store.DeleteUser(r.Context(), userID); err != nil {
		s.logger.Error("delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.notifier.NotifyAdmins(realtime.UpdateUserDeleted, struct {
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
	}{UserID: userID, Username: user.Username})

	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
