package server

import (
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
)

// scheduleRequest is the body of POST /schedules and PUT /schedules/{id}
type scheduleRequest struct {
	ID         string               `json:"id,omitempty"`
	Title      string               `json:"title"`
	StartAt    string               `json:"startAt"`
	Recurrence *recurrence.RuleSpec `json:"recurrence,omitempty"`
}

func (req scheduleRequest) toSchedule() (*storage.Schedule, error) {
	start, err := parseStartAt(req.StartAt)
	if err != nil {
		return nil, err
	}
	return &storage.Schedule{
		ID:         req.ID,
		Title:      req.Title,
		StartAt:    start,
		Recurrence: req.Recurrence,
	}, nil
}

// parseStartAt keeps the clock time of RFC 3339 input and accepts every
// date form recurrence.ParseDate does.
func parseStartAt(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, badRequestf("startAt is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	d, err := recurrence.ParseDate(value)
	if err != nil {
		return time.Time{}, badRequestf("invalid startAt: %w", err)
	}
	return d, nil
}

// scheduleResponse is the JSON form of a stored schedule
type scheduleResponse struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	StartAt    time.Time            `json:"startAt"`
	Recurrence *recurrence.RuleSpec `json:"recurrence,omitempty"`
	Summary    string               `json:"summary"`
	RRule      string               `json:"rrule,omitempty"`
	Created    time.Time            `json:"created"`
	Modified   time.Time            `json:"modified"`
}

func newScheduleResponse(s *storage.Schedule, lang string) scheduleResponse {
	resp := scheduleResponse{
		ID:         s.ID,
		Title:      s.Title,
		StartAt:    s.StartAt,
		Recurrence: s.Recurrence,
		Created:    s.Created,
		Modified:   s.Modified,
	}
	rule, err := s.Rule()
	switch {
	case err != nil:
		resp.Summary = recurrence.DescribeSpec(lang, *s.Recurrence)
	default:
		resp.Summary = recurrence.DescribeIn(lang, rule)
		if rule != nil {
			resp.RRule = recurrence.FormatRRULE(rule)
		}
	}
	return resp
}

// previewRequest is the body of POST /preview
type previewRequest struct {
	StartAt    string               `json:"startAt"`
	Recurrence *recurrence.RuleSpec `json:"recurrence"`
	Exceptions []string             `json:"exceptions,omitempty"`
	Count      *int                 `json:"count,omitempty"`
	Lang       string               `json:"lang,omitempty"`
}

// occurrencesResponse answers POST /preview and GET /schedules/{id}/occurrences
type occurrencesResponse struct {
	ScheduleID  string   `json:"scheduleId,omitempty"`
	Summary     string   `json:"summary"`
	RRule       string   `json:"rrule,omitempty"`
	Occurrences []string `json:"occurrences"`
}

// exceptionRequest is the body of POST /schedules/{id}/exceptions
type exceptionRequest struct {
	Date string `json:"date"`
}

// exceptionsResponse lists a schedule's exception dates
type exceptionsResponse struct {
	ScheduleID string   `json:"scheduleId"`
	Dates      []string `json:"dates"`
}
