package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyp0633/librecur/recurrence"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a storage error of type ErrNotFound.
func IsNotFound(err error) bool { return isType(err, ErrNotFound) }

// IsAlreadyExists reports whether err is a storage error of type ErrAlreadyExists.
func IsAlreadyExists(err error) bool { return isType(err, ErrAlreadyExists) }

// IsInvalidInput reports whether err is a storage error of type ErrInvalidInput.
func IsInvalidInput(err error) bool { return isType(err, ErrInvalidInput) }

func isType(err error, t ErrorType) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Type == t
}

// Schedule is a stored item with an optional recurrence rule.
type Schedule struct {
	ID      string
	Title   string
	StartAt time.Time
	// Recurrence is kept in wire form; nil means a single occurrence.
	Recurrence *recurrence.RuleSpec
	Created    time.Time
	Modified   time.Time
}

// Clone returns a deep copy of s.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	out := *s
	out.Recurrence = CopySpec(s.Recurrence)
	return &out
}

// CopySpec returns a deep copy of spec, or nil.
func CopySpec(spec *recurrence.RuleSpec) *recurrence.RuleSpec {
	if spec == nil {
		return nil
	}
	out := *spec
	out.ByDay = append([]string(nil), spec.ByDay...)
	out.ByMonthDay = append([]int(nil), spec.ByMonthDay...)
	return &out
}

// Validate checks the fields every backend requires and, when present,
// that the recurrence rule builds.
func (s *Schedule) Validate() error {
	if s.Title == "" {
		return &Error{Type: ErrInvalidInput, Message: "title is required"}
	}
	if s.StartAt.IsZero() {
		return &Error{Type: ErrInvalidInput, Message: "startAt is required"}
	}
	if s.Recurrence != nil {
		if _, err := s.Recurrence.Build(); err != nil {
			return &Error{Type: ErrInvalidInput, Message: "invalid recurrence", Err: err}
		}
	}
	return nil
}

// Rule builds the schedule's recurrence. A nil rule with a nil error
// means the schedule does not repeat.
func (s *Schedule) Rule() (recurrence.Rule, error) {
	if s.Recurrence == nil {
		return nil, nil
	}
	return s.Recurrence.Build()
}

// ListOptions provides options for listing schedules
type ListOptions struct {
	// Only schedules starting on or after this date
	StartsAfter *time.Time
	// Only schedules that have a recurrence rule
	RecurringOnly bool
	// Maximum number of results, 0 for no limit
	Limit int
}

// Storage is the interface that must be implemented by storage backends
type Storage interface {
	// Schedule operations
	CreateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context, opts *ListOptions) ([]*Schedule, error)
	UpdateSchedule(ctx context.Context, s *Schedule) error
	DeleteSchedule(ctx context.Context, id string) error

	// SetRecurrence replaces the rule; nil removes it.
	SetRecurrence(ctx context.Context, id string, spec *recurrence.RuleSpec) error

	// Exception operations. Dates are calendar dates; the list is ascending.
	ListExceptions(ctx context.Context, id string) ([]time.Time, error)
	AddException(ctx context.Context, id string, date time.Time) error
	RemoveException(ctx context.Context, id string, date time.Time) error
}
