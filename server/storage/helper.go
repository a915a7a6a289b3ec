package storage

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/emersion/go-ical"
)

// ScheduleToICS renders a schedule with its exception dates as a
// single-event iCalendar document.
func ScheduleToICS(s *Schedule, exceptions []time.Time) (string, error) {
	rule, err := s.Rule()
	if err != nil {
		return "", &Error{Type: ErrInvalidInput, Message: "invalid recurrence", Err: err}
	}

	series := recurrence.Series{
		UID:        s.ID,
		Summary:    s.Title,
		Anchor:     recurrence.DateOf(s.StartAt),
		Rule:       rule,
		Exceptions: recurrence.NewExceptionSet(exceptions...),
	}
	stamp := s.Modified
	if stamp.IsZero() {
		stamp = time.Now()
	}
	event := series.Event(stamp)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//librecur//NONSGML v1.0//EN")
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

// ScheduleFromICS parses a calendar holding exactly one VEVENT into a
// schedule and its exception dates. The UID becomes the schedule ID.
func ScheduleFromICS(ics string) (*Schedule, []time.Time, error) {
	dec := ical.NewDecoder(strings.NewReader(ics))

	cal, err := dec.Decode()
	if err != nil {
		return nil, nil, &Error{Type: ErrInvalidInput, Message: "failed to decode calendar", Err: err}
	}

	events := cal.Events()
	if len(events) == 0 {
		return nil, nil, &Error{Type: ErrInvalidInput, Message: "no events found in calendar"}
	}
	if len(events) > 1 {
		return nil, nil, &Error{Type: ErrInvalidInput, Message: "multiple events found in calendar"}
	}

	series, err := recurrence.FromComponent(events[0].Component)
	if err != nil {
		return nil, nil, &Error{Type: ErrInvalidInput, Message: "invalid event", Err: err}
	}

	s := &Schedule{
		ID:      series.UID,
		Title:   series.Summary,
		StartAt: series.Anchor,
	}
	if series.Rule != nil {
		spec := recurrence.SpecOf(series.Rule)
		s.Recurrence = &spec
	}
	return s, series.Exceptions.Dates(), nil
}
