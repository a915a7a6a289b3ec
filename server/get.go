package server

import (
	"net/http"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
)

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	opts := &storage.ListOptions{RecurringOnly: r.URL.Query().Get("recurring") == "true"}

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Limit = limit

	if raw := r.URL.Query().Get("startsAfter"); raw != "" {
		d, err := recurrence.ParseDate(raw)
		if err != nil {
			s.writeError(w, r, badRequestf("invalid startsAfter: %w", err))
			return
		}
		opts.StartsAfter = &d
	}

	schedules, err := s.storage.ListSchedules(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	l := lang(r)
	out := make([]scheduleResponse, len(schedules))
	for i, sched := range schedules {
		out[i] = newScheduleResponse(sched, l)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := s.storage.GetSchedule(r.Context(), scheduleID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduleResponse(sched, lang(r)))
}

func (s *Server) handleListExceptions(w http.ResponseWriter, r *http.Request) {
	id := scheduleID(r)
	dates, err := s.storage.ListExceptions(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exceptionsResponse{ScheduleID: id, Dates: recurrence.FormatDates(dates)})
}

// loadSeries fetches a schedule together with its exception set
func (s *Server) loadSeries(r *http.Request) (*storage.Schedule, []time.Time, error) {
	id := scheduleID(r)
	sched, err := s.storage.GetSchedule(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	dates, err := s.storage.ListExceptions(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	return sched, dates, nil
}

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q, err := parseOccurrenceQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sched, exdates, err := s.loadSeries(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	exceptions := recurrence.NewExceptionSet(exdates...)

	dates, err := s.expandSchedule(sched, exceptions, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Debug("occurrences expanded",
		"id", sched.ID,
		"count", len(dates),
		"format", q.format)
	s.writeOccurrences(w, r, sched, exceptions, dates, q)
}

func (s *Server) handleExportSchedule(w http.ResponseWriter, r *http.Request) {
	sched, exdates, err := s.loadSeries(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ics, err := storage.ScheduleToICS(sched, exdates)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sched.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ics))
}
