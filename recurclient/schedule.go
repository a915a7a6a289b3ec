package recurclient

import (
	"context"
	"fmt"
	"time"

	"github.com/cyp0633/librecur/recurrence"
)

// Schedule is a stored schedule as returned by the API
type Schedule struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	StartAt    time.Time            `json:"startAt"`
	Recurrence *recurrence.RuleSpec `json:"recurrence,omitempty"`
	Summary    string               `json:"summary"`
	RRule      string               `json:"rrule,omitempty"`
	Created    time.Time            `json:"created"`
	Modified   time.Time            `json:"modified"`
}

// Rule builds the schedule's recurrence; nil means it does not repeat.
func (s *Schedule) Rule() (recurrence.Rule, error) {
	if s.Recurrence == nil {
		return nil, nil
	}
	return s.Recurrence.Build()
}

// NewSchedule is the body of CreateSchedule
type NewSchedule struct {
	ID         string               `json:"id,omitempty"`
	Title      string               `json:"title"`
	StartAt    string               `json:"startAt"`
	Recurrence *recurrence.RuleSpec `json:"recurrence,omitempty"`
}

// GetSchedule fetches one schedule
func (c *Client) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	var s Schedule
	if err := c.httpClient.DoGET(ctx, schedulePath(id), &s); err != nil {
		return nil, apiError(err)
	}
	return &s, nil
}

// ListSchedules fetches every schedule, ordered by start
func (c *Client) ListSchedules(ctx context.Context) ([]Schedule, error) {
	var out []Schedule
	if err := c.httpClient.DoGET(ctx, "schedules", &out); err != nil {
		return nil, apiError(err)
	}
	return out, nil
}

// CreateSchedule stores a new schedule. The rule is validated locally
// first so malformed specs never reach the server.
func (c *Client) CreateSchedule(ctx context.Context, in NewSchedule) (*Schedule, error) {
	if in.Recurrence != nil {
		if _, err := in.Recurrence.Build(); err != nil {
			return nil, err
		}
	}
	var s Schedule
	if err := c.httpClient.DoPOST(ctx, "schedules", in, &s); err != nil {
		return nil, apiError(err)
	}
	c.logger.Debug("schedule created", "id", s.ID)
	return &s, nil
}

// DeleteSchedule removes a schedule and its exceptions
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	return apiError(c.httpClient.DoDELETE(ctx, schedulePath(id)))
}

// PutRecurrence replaces a schedule's rule
func (c *Client) PutRecurrence(ctx context.Context, id string, spec recurrence.RuleSpec) (*Schedule, error) {
	if _, err := spec.Build(); err != nil {
		return nil, fmt.Errorf("refusing to send invalid rule: %w", err)
	}
	var s Schedule
	if err := c.httpClient.DoPUT(ctx, schedulePath(id, "recurrence"), spec, &s); err != nil {
		return nil, apiError(err)
	}
	return &s, nil
}

// DeleteRecurrence turns a schedule back into a single event
func (c *Client) DeleteRecurrence(ctx context.Context, id string) error {
	return apiError(c.httpClient.DoDELETE(ctx, schedulePath(id, "recurrence")))
}
