package server

import (
	"net/http"

	"github.com/cyp0633/librecur/recurrence"
)

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sched, err := req.toSchedule()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := scheduleID(r)
	if sched.ID != "" && sched.ID != id {
		s.writeError(w, r, badRequestf("id %q does not match path", sched.ID))
		return
	}
	sched.ID = id

	if err := s.storage.UpdateSchedule(r.Context(), sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduleResponse(sched, lang(r)))
}

// handlePutRecurrence replaces the schedule's rule. The body is a rule
// spec; it is built before anything is stored.
func (s *Server) handlePutRecurrence(w http.ResponseWriter, r *http.Request) {
	var spec recurrence.RuleSpec
	if err := decodeJSON(r, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := spec.Build(); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := scheduleID(r)
	if err := s.storage.SetRecurrence(r.Context(), id, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}

	sched, err := s.storage.GetSchedule(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduleResponse(sched, lang(r)))
}
