package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trackfit-dev/trackfit/internal/auth"
	"github.com/trackfit-dev/trackfit/internal/realtime"
	"github.com/trackfit-dev/trackfit/internal/store"
)

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// activity is the admin-feed payload for data mutations. The userId field
// lets the fan-out attribute the event to the acting user.
type activity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	entries, err := s.store.Entries(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("list entries", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var e store.Entry
	if err := readJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e.UserID = id.UserID

	created, err := s.store.AddEntry(r.Context(), e)
	if err != nil {
		s.logger.Error("add entry", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.notifier.NotifyUser(id.UserID, realtime.UpdateEntryAdded, created)
	s.notifier.NotifyAdmins(realtime.UpdateEntryAdded, activity{UserID: id.UserID, Username: id.Username})

	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	entryID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteEntry(r.Context(), id.UserID, entryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		s.logger.Error("delete entry", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.notifier.NotifyUser(id.UserID, realtime.UpdateEntryDeleted, map[string]int64{"id": entryID})

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
