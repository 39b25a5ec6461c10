package api

import (
	"errors"
	"net/http"

	"github.com/trackfit-dev/trackfit/internal/auth"
	"github.com/trackfit-dev/trackfit/internal/realtime"
	"github.com/trackfit-dev/trackfit/internal/store"
)

func (s *Server) handleListWeight(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	logs, err := s.store.WeightLogs(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("list weight logs", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if logs == nil {
		logs = []store.WeightLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleAddWeight(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req struct {
		WeightKG float64 `json:"weight"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WeightKG <= 0 {
		writeError(w, http.StatusBadRequest, "weight must be positive")
		return
	}

	created, err := s.store.AddWeightLog(r.Context(), id.UserID, req.WeightKG)
	if err != nil {
		s.logger.Error("add weight log", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.notifier.NotifyUser(id.UserID, realtime.UpdateWeightAdded, created)

	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleDeleteWeight(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	logID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteWeightLog(r.Context(), id.UserID, logID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "log not found")
			return
		}
		s.logger.Error("delete weight log", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.notifier.NotifyUser(id.UserID, realtime.UpdateWeightDeleted, map[string]int64{"id": logID})

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
