package server

import (
	"net/http"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/google/uuid"
)

// handlePreview expands an unsaved rule. Every input is validated before
// the engine runs.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	anchor, err := parseStartAt(req.StartAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Recurrence == nil {
		s.writeError(w, r, badRequestf("recurrence is required"))
		return
	}
	rule, err := req.Recurrence.Build()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	exceptions, err := recurrence.ParseExceptionSet(req.Exceptions)
	if err != nil {
		s.writeError(w, r, badRequest{err: err})
		return
	}

	count := defaultOccurrenceCount
	if req.Count != nil {
		if *req.Count < 0 {
			s.writeError(w, r, badRequestf("count must not be negative"))
			return
		}
		count = min(*req.Count, maxOccurrenceCount)
	}

	l := req.Lang
	if l == "" {
		l = lang(r)
	}

	dates := s.engine.Occurrences(anchor, rule, exceptions, count)
	writeJSON(w, http.StatusOK, occurrencesResponse{
		Summary:     recurrence.DescribeIn(l, rule),
		RRule:       recurrence.FormatRRULE(rule),
		Occurrences: recurrence.FormatDates(dates),
	})
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
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

	if err := s.storage.CreateSchedule(r.Context(), sched); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("schedule created", "id", sched.ID)
	w.Header().Set("Location", "/schedules/"+sched.ID)
	writeJSON(w, http.StatusCreated, newScheduleResponse(sched, lang(r)))
}

// handleImportSchedule creates a schedule from a single-VEVENT calendar
// body. EXDATEs become exceptions.
func (s *Server) handleImportSchedule(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sched, exdates, err := storage.ScheduleFromICS(string(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	if sched.Title == "" {
		sched.Title = "Imported " + sched.ID
	}

	if err := s.storage.CreateSchedule(r.Context(), sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, d := range exdates {
		if err := s.storage.AddException(r.Context(), sched.ID, d); err != nil {
			// an import is all or nothing
			if derr := s.storage.DeleteSchedule(r.Context(), sched.ID); derr != nil {
				s.logger.Error("failed to roll back import", "id", sched.ID, "error", derr)
			}
			s.writeError(w, r, err)
			return
		}
	}

	s.logger.Info("schedule imported",
		"id", sched.ID,
		"exceptions", len(exdates))
	w.Header().Set("Location", "/schedules/"+sched.ID)
	writeJSON(w, http.StatusCreated, newScheduleResponse(sched, lang(r)))
}

func (s *Server) handleAddException(w http.ResponseWriter, r *http.Request) {
	var req exceptionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := recurrence.ParseDate(req.Date)
	if err != nil {
		s.writeError(w, r, badRequest{err: err})
		return
	}

	id := scheduleID(r)
	if err := s.storage.AddException(r.Context(), id, d); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exceptionRequest{Date: recurrence.FormatDate(d)})
}
