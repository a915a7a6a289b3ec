package server

import (
	"net/http"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := scheduleID(r)
	if err := s.storage.DeleteSchedule(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("schedule deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRecurrence(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.SetRecurrence(r.Context(), scheduleID(r), nil); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteException(w http.ResponseWriter, r *http.Request) {
	d, err := recurrence.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, r, badRequest{err: err})
		return
	}
	if err := s.storage.RemoveException(r.Context(), scheduleID(r), d); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
