package recurclient

import (
	"context"
	"fmt"
	"time"

	"github.com/cyp0633/librecur/recurrence"
)

// NextOccurrences fetches the schedule and its exceptions and expands up
// to n occurrences locally. A schedule without a rule yields its start
// date unless that date is excepted.
func (c *Client) NextOccurrences(ctx context.Context, id string, n int) ([]time.Time, error) {
	s, err := c.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	exdates, err := c.GetExceptions(ctx, id)
	if err != nil {
		return nil, err
	}

	rule, err := s.Rule()
	if err != nil {
		return nil, fmt.Errorf("schedule %s has an invalid rule: %w", id, err)
	}
	exceptions := recurrence.NewExceptionSet(exdates...)
	anchor := recurrence.DateOf(s.StartAt)

	if rule == nil {
		if n <= 0 || exceptions.Contains(anchor) {
			return []time.Time{}, nil
		}
		return []time.Time{anchor}, nil
	}

	dates := c.engine.Occurrences(anchor, rule, exceptions, n)
	c.logger.Debug("expanded locally",
		"id", id,
		"rule", recurrence.FormatRRULE(rule),
		"count", len(dates))
	return dates, nil
}

// PreviewRequest is the body of Preview
type PreviewRequest struct {
	StartAt    string               `json:"startAt"`
	Recurrence *recurrence.RuleSpec `json:"recurrence"`
	Exceptions []string             `json:"exceptions,omitempty"`
	Count      *int                 `json:"count,omitempty"`
	Lang       string               `json:"lang,omitempty"`
}

// Preview is the server's expansion of an unsaved rule
type Preview struct {
	Summary     string   `json:"summary"`
	RRule       string   `json:"rrule,omitempty"`
	Occurrences []string `json:"occurrences"`
}

// Preview asks the server to expand an unsaved rule
func (c *Client) Preview(ctx context.Context, req PreviewRequest) (*Preview, error) {
	var p Preview
	if err := c.httpClient.DoPOST(ctx, "preview", req, &p); err != nil {
		return nil, apiError(err)
	}
	return &p, nil
}
