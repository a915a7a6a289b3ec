package server

import (
	"net/http"
	"time"

	"github.com/cyp0633/librecur/internal/xml"
	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/samber/mo"
)

// Output formats of GET /schedules/{id}/occurrences
const (
	formatJSON = "json"
	formatXML  = "xml"
	formatICS  = "ics"
)

// occurrenceQuery is the parsed query string of an occurrence listing
type occurrenceQuery struct {
	count  int
	from   mo.Option[time.Time]
	to     mo.Option[time.Time]
	format string
	lang   string
}

func parseOccurrenceQuery(r *http.Request) (occurrenceQuery, error) {
	q := occurrenceQuery{format: formatJSON, lang: lang(r)}

	count, err := intParam(r, "count", defaultOccurrenceCount)
	if err != nil {
		return q, err
	}
	q.count = min(count, maxOccurrenceCount)

	values := r.URL.Query()
	for name, dst := range map[string]*mo.Option[time.Time]{"from": &q.from, "to": &q.to} {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		d, err := recurrence.ParseDate(raw)
		if err != nil {
			return q, badRequestf("invalid %s: %w", name, err)
		}
		*dst = mo.Some(d)
	}
	if from, ok := q.from.Get(); ok {
		if to, ok := q.to.Get(); ok && to.Before(from) {
			return q, badRequestf("to is before from")
		}
	}

	if f := values.Get("format"); f != "" {
		switch f {
		case formatJSON, formatXML, formatICS:
			q.format = f
		default:
			return q, badRequestf("unsupported format: %q", f)
		}
	}
	return q, nil
}

// ranged reports whether the query narrows to a date range
func (q occurrenceQuery) ranged() bool {
	return q.from.IsPresent() || q.to.IsPresent()
}

// horizonDays is the engine's effective look-ahead
func (s *Server) horizonDays() int {
	if h := s.engine.Config().HorizonDays; h > 0 {
		return h
	}
	return recurrence.DefaultHorizonDays
}

// expandSchedule lists the schedule's occurrences for q. A schedule
// without a rule occurs once, on its start date.
func (s *Server) expandSchedule(sched *storage.Schedule, exceptions recurrence.ExceptionSet, q occurrenceQuery) ([]time.Time, error) {
	rule, err := sched.Rule()
	if err != nil {
		return nil, err
	}
	anchor := recurrence.DateOf(sched.StartAt)

	if rule == nil {
		dates := []time.Time{}
		inRange := !anchor.Before(q.from.OrElse(anchor)) && !anchor.After(q.to.OrElse(anchor))
		if q.count > 0 && inRange && !exceptions.Contains(anchor) {
			dates = append(dates, anchor)
		}
		return dates, nil
	}

	if !q.ranged() {
		return s.engine.Occurrences(anchor, rule, exceptions, q.count), nil
	}

	from := q.from.OrElse(anchor)
	to := q.to.OrElse(anchor.AddDate(0, 0, s.horizonDays()))
	dates := s.engine.Between(anchor, rule, exceptions, from, to)
	if len(dates) > q.count {
		dates = dates[:q.count]
	}
	return dates, nil
}

// writeOccurrences renders dates in the requested format
func (s *Server) writeOccurrences(w http.ResponseWriter, r *http.Request, sched *storage.Schedule, exceptions recurrence.ExceptionSet, dates []time.Time, q occurrenceQuery) {
	resp := newScheduleResponse(sched, q.lang)

	switch q.format {
	case formatXML:
		list := &xml.OccurrenceList{
			ScheduleID: sched.ID,
			Title:      sched.Title,
			Summary:    resp.Summary,
			RRule:      resp.RRule,
			Dates:      dates,
		}
		doc := list.ToXML()
		doc.Indent(2)
		w.Header().Set(headerContentType, mimeTypeXML)
		w.WriteHeader(http.StatusOK)
		doc.WriteTo(w)

	case formatICS:
		// a VCALENDAR needs at least one component
		if len(dates) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		rule, _ := sched.Rule()
		series := recurrence.Series{
			UID:        sched.ID,
			Summary:    sched.Title,
			Anchor:     recurrence.DateOf(sched.StartAt),
			Rule:       rule,
			Exceptions: exceptions,
		}
		data, err := recurrence.EncodeCalendar(recurrence.OccurrenceCalendar(series, dates, s.now()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set(headerContentType, mimeTypeCalendar)
		w.WriteHeader(http.StatusOK)
		w.Write(data)

	default:
		writeJSON(w, http.StatusOK, occurrencesResponse{
			ScheduleID:  sched.ID,
			Summary:     resp.Summary,
			RRule:       resp.RRule,
			Occurrences: recurrence.FormatDates(dates),
		})
	}
}
