package recurclient

import (
	"context"
	"time"

	"github.com/cyp0633/librecur/recurrence"
)

type exceptionList struct {
	ScheduleID string   `json:"scheduleId"`
	Dates      []string `json:"dates"`
}

type exceptionBody struct {
	Date string `json:"date"`
}

// GetExceptions returns the schedule's exception dates, ascending
func (c *Client) GetExceptions(ctx context.Context, id string) ([]time.Time, error) {
	var list exceptionList
	if err := c.httpClient.DoGET(ctx, schedulePath(id, "exceptions"), &list); err != nil {
		return nil, apiError(err)
	}
	set, err := recurrence.ParseExceptionSet(list.Dates)
	if err != nil {
		return nil, err
	}
	return set.Dates(), nil
}

// AddException excludes date from the schedule
func (c *Client) AddException(ctx context.Context, id string, date time.Time) error {
	body := exceptionBody{Date: recurrence.FormatDate(recurrence.DateOf(date))}
	return apiError(c.httpClient.DoPOST(ctx, schedulePath(id, "exceptions"), body, nil))
}

// RemoveException restores date
func (c *Client) RemoveException(ctx context.Context, id string, date time.Time) error {
	return apiError(c.httpClient.DoDELETE(ctx, schedulePath(id, "exceptions", recurrence.FormatDate(recurrence.DateOf(date)))))
}
