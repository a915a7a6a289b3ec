// memory based implementation for testing and single-process use
package memory

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu         sync.RWMutex
	schedules  map[string]*storage.Schedule
	exceptions map[string]map[time.Time]struct{} // key: schedule ID
	logger     *slog.Logger
	now        func() time.Time
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for Created/Modified.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		schedules:  make(map[string]*storage.Schedule),
		exceptions: make(map[string]map[time.Time]struct{}),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func notFound(id string) error {
	return &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "schedule not found: " + id,
	}
}

// Schedule operations

func (s *Store) CreateSchedule(_ context.Context, sched *storage.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	if _, exists := s.schedules[sched.ID]; exists {
		s.logger.Warn("failed to create schedule: already exists", "id", sched.ID)
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "schedule already exists: " + sched.ID,
		}
	}

	now := s.now()
	sched.Created = now
	sched.Modified = now
	s.schedules[sched.ID] = sched.Clone()

	s.logger.Debug("schedule created", "id", sched.ID, "recurring", sched.Recurrence != nil)
	return nil
}

func (s *Store) GetSchedule(_ context.Context, id string) (*storage.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.schedules[id]
	if !ok {
		return nil, notFound(id)
	}
	return sched.Clone(), nil
}

func (s *Store) ListSchedules(_ context.Context, opts *storage.ListOptions) ([]*storage.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedules := make([]*storage.Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		if opts != nil {
			if opts.RecurringOnly && sched.Recurrence == nil {
				continue
			}
			if opts.StartsAfter != nil && sched.StartAt.Before(*opts.StartsAfter) {
				continue
			}
		}
		schedules = append(schedules, sched.Clone())
	}

	sort.Slice(schedules, func(i, j int) bool {
		if !schedules[i].StartAt.Equal(schedules[j].StartAt) {
			return schedules[i].StartAt.Before(schedules[j].StartAt)
		}
		return schedules[i].ID < schedules[j].ID
	})

	if opts != nil && opts.Limit > 0 && len(schedules) > opts.Limit {
		schedules = schedules[:opts.Limit]
	}
	return schedules, nil
}

func (s *Store) UpdateSchedule(_ context.Context, sched *storage.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.schedules[sched.ID]
	if !ok {
		return notFound(sched.ID)
	}

	sched.Created = existing.Created
	sched.Modified = s.now()
	s.schedules[sched.ID] = sched.Clone()
	return nil
}

func (s *Store) DeleteSchedule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return notFound(id)
	}

	delete(s.schedules, id)
	delete(s.exceptions, id)

	s.logger.Debug("schedule deleted", "id", id)
	return nil
}

func (s *Store) SetRecurrence(_ context.Context, id string, spec *recurrence.RuleSpec) error {
	if spec != nil {
		if _, err := spec.Build(); err != nil {
			return &storage.Error{Type: storage.ErrInvalidInput, Message: "invalid recurrence", Err: err}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[id]
	if !ok {
		return notFound(id)
	}

	updated := sched.Clone()
	updated.Recurrence = storage.CopySpec(spec)
	updated.Modified = s.now()
	s.schedules[id] = updated
	return nil
}

// Exception operations

func (s *Store) ListExceptions(_ context.Context, id string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.schedules[id]; !ok {
		return nil, notFound(id)
	}

	dates := make([]time.Time, 0, len(s.exceptions[id]))
	for d := range s.exceptions[id] {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (s *Store) AddException(_ context.Context, id string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return notFound(id)
	}

	d := recurrence.DateOf(date)
	set, ok := s.exceptions[id]
	if !ok {
		set = make(map[time.Time]struct{})
		s.exceptions[id] = set
	}
	if _, exists := set[d]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "exception already exists: " + recurrence.FormatDate(d),
		}
	}
	set[d] = struct{}{}
	return nil
}

func (s *Store) RemoveException(_ context.Context, id string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return notFound(id)
	}

	d := recurrence.DateOf(date)
	if _, exists := s.exceptions[id][d]; !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "exception not found: " + recurrence.FormatDate(d),
		}
	}
	delete(s.exceptions[id], d)
	return nil
}
