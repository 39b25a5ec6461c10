package api

import (
	"errors"
	"net/http"

	"github.com/trackfit-dev/trackfit/internal/auth"
	"github.com/trackfit-dev/trackfit/internal/realtime"
	"github.com/trackfit-dev/trackfit/internal/store"
)

func (s *Server) handleListWater(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	logs, err := s.store.WaterLogs(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("list water logs", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if logs == nil {
		logs = []store.WaterLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleAddWater(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req struct {
		AmountML int64 `json:"amount"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AmountML <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	created, err := s.store.AddWaterLog(r.Context(), id.UserID, req.AmountML)
	if err != nil {
		s.logger.Error("add water log", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.notifier.NotifyUser(id.UserID, realtime.UpdateWaterAdded, created)
	s.notifier.NotifyAdmins(realtime.UpdateWaterAdded, activity{UserID: id.UserID, Username: id.Username})

	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleDeleteWater(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	logID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteWaterLog(r.Context(), id.UserID, logID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "log not found")
			return
		}
		s.logger.Error("delete water log", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.notifier.NotifyUser(id.UserID, realtime.UpdateWaterDeleted, map[string]int64{"id": logID})

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
