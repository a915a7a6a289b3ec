package storage

import (
	"context"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

// CreateSchedule implements the Storage interface
func (m *MockStorage) CreateSchedule(ctx context.Context, s *Schedule) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// GetSchedule implements the Storage interface
func (m *MockStorage) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Schedule), args.Error(1)
}

// ListSchedules implements the Storage interface
func (m *MockStorage) ListSchedules(ctx context.Context, opts *ListOptions) ([]*Schedule, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Schedule), args.Error(1)
}

func (m *MockStorage) UpdateSchedule(ctx context.Context, s *Schedule) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStorage) DeleteSchedule(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) SetRecurrence(ctx context.Context, id string, spec *recurrence.RuleSpec) error {
	args := m.Called(ctx, id, spec)
	return args.Error(0)
}

func (m *MockStorage) ListExceptions(ctx context.Context, id string) ([]time.Time, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockStorage) AddException(ctx context.Context, id string, date time.Time) error {
	args := m.Called(ctx, id, date)
	return args.Error(0)
}

func (m *MockStorage) RemoveException(ctx context.Context, id string, date time.Time) error {
	args := m.Called(ctx, id, date)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockSchedule creates a test Schedule; spec may be nil.
func NewMockSchedule(id, title string, start time.Time, spec *recurrence.RuleSpec) *Schedule {
	now := time.Now()
	return &Schedule{
		ID:         id,
		Title:      title,
		StartAt:    start,
		Recurrence: spec,
		Created:    now,
		Modified:   now,
	}
}

// --- Convenience methods for setting up common test scenarios ---

// AddSchedule makes the schedule and its exceptions readable through the mock
func (m *MockStorage) AddSchedule(s *Schedule, exceptions []time.Time) {
	// Override any existing expectations
	m.ExpectedCalls = removeMatchingCalls(m.ExpectedCalls, "GetSchedule", s.ID)
	m.ExpectedCalls = removeMatchingCalls(m.ExpectedCalls, "ListExceptions", s.ID)

	if exceptions == nil {
		exceptions = []time.Time{}
	}
	m.On("GetSchedule", mock.Anything, s.ID).Return(s, nil)
	m.On("ListExceptions", mock.Anything, s.ID).Return(exceptions, nil)
}

// Helper to remove existing mock calls that match a method and the id
// argument following the context
func removeMatchingCalls(calls []*mock.Call, method string, id interface{}) []*mock.Call {
	result := make([]*mock.Call, 0, len(calls))
	for _, call := range calls {
		if call.Method == method && len(call.Arguments) > 1 && call.Arguments[1] == id {
			continue
		}
		result = append(result, call)
	}
	return result
}
