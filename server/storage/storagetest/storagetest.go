// Package storagetest holds the behavior every storage.Storage backend must
// share. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) storage.Storage

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run executes the conformance tests against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateValidation", func(t *testing.T) { testCreateValidation(t, newStore(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("UpdateAndDelete", func(t *testing.T) { testUpdateAndDelete(t, newStore(t)) })
	t.Run("SetRecurrence", func(t *testing.T) { testSetRecurrence(t, newStore(t)) })
	t.Run("Exceptions", func(t *testing.T) { testExceptions(t, newStore(t)) })
	t.Run("ReturnedValuesAreCopies", func(t *testing.T) { testCopies(t, newStore(t)) })
	t.Run("ConcurrentExceptions", func(t *testing.T) { testConcurrentExceptions(t, newStore(t)) })
}

func testCreateAndGet(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	sched := &storage.Schedule{
		Title:      "Standup",
		StartAt:    date(2025, 1, 6),
		Recurrence: &recurrence.RuleSpec{Freq: "WEEKLY", IntervalCount: 1, ByDay: []string{"MO", "WE"}},
	}
	require.NoError(t, store.CreateSchedule(ctx, sched))
	assert.NotEmpty(t, sched.ID, "ID should be assigned")
	assert.False(t, sched.Created.IsZero())

	got, err := store.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, sched.ID, got.ID)
	assert.Equal(t, "Standup", got.Title)
	assert.True(t, sched.StartAt.Equal(got.StartAt))
	assert.Equal(t, sched.Recurrence, got.Recurrence)

	// explicit IDs are kept and must be unique
	fixed := &storage.Schedule{ID: "fixed", Title: "Once", StartAt: date(2025, 2, 1)}
	require.NoError(t, store.CreateSchedule(ctx, fixed))
	err = store.CreateSchedule(ctx, &storage.Schedule{ID: "fixed", Title: "Again", StartAt: date(2025, 2, 1)})
	assert.True(t, storage.IsAlreadyExists(err), "got %v", err)

	got, err = store.GetSchedule(ctx, "fixed")
	require.NoError(t, err)
	assert.Nil(t, got.Recurrence)

	_, err = store.GetSchedule(ctx, "missing")
	assert.True(t, storage.IsNotFound(err), "got %v", err)
}

func testCreateValidation(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	err := store.CreateSchedule(ctx, &storage.Schedule{StartAt: date(2025, 1, 1)})
	assert.True(t, storage.IsInvalidInput(err))

	err = store.CreateSchedule(ctx, &storage.Schedule{
		Title:      "Bad",
		StartAt:    date(2025, 1, 1),
		Recurrence: &recurrence.RuleSpec{Freq: "MONTHLY"},
	})
	assert.True(t, storage.IsInvalidInput(err))
	assert.ErrorIs(t, err, recurrence.ErrMissingMonthlyAnchor)

	list, err := store.ListSchedules(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testList(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	for _, s := range []*storage.Schedule{
		{ID: "c", Title: "C", StartAt: date(2025, 3, 1), Recurrence: &recurrence.RuleSpec{Freq: "DAILY"}},
		{ID: "a", Title: "A", StartAt: date(2025, 1, 1)},
		{ID: "b", Title: "B", StartAt: date(2025, 2, 1), Recurrence: &recurrence.RuleSpec{Freq: "DAILY"}},
	} {
		require.NoError(t, store.CreateSchedule(ctx, s))
	}

	ids := func(list []*storage.Schedule) []string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.ID
		}
		return out
	}

	all, err := store.ListSchedules(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	recurring, err := store.ListSchedules(ctx, &storage.ListOptions{RecurringOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(recurring))

	after := date(2025, 2, 1)
	later, err := store.ListSchedules(ctx, &storage.ListOptions{StartsAfter: &after, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(later))
}

func testUpdateAndDelete(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	sched := &storage.Schedule{ID: "s1", Title: "Gym", StartAt: date(2025, 1, 1)}
	require.NoError(t, store.CreateSchedule(ctx, sched))
	require.NoError(t, store.AddException(ctx, "s1", date(2025, 1, 2)))

	update := &storage.Schedule{
		ID:         "s1",
		Title:      "Gym (evening)",
		StartAt:    date(2025, 1, 2),
		Recurrence: &recurrence.RuleSpec{Freq: "DAILY", IntervalCount: 2},
	}
	require.NoError(t, store.UpdateSchedule(ctx, update))
	assert.True(t, update.Created.Equal(sched.Created))

	got, err := store.GetSchedule(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Gym (evening)", got.Title)
	assert.Equal(t, 2, got.Recurrence.IntervalCount)

	err = store.UpdateSchedule(ctx, &storage.Schedule{ID: "nope", Title: "x", StartAt: date(2025, 1, 1)})
	assert.True(t, storage.IsNotFound(err))
	err = store.UpdateSchedule(ctx, &storage.Schedule{ID: "s1", StartAt: date(2025, 1, 1)})
	assert.True(t, storage.IsInvalidInput(err))

	require.NoError(t, store.DeleteSchedule(ctx, "s1"))
	_, err = store.GetSchedule(ctx, "s1")
	assert.True(t, storage.IsNotFound(err))
	_, err = store.ListExceptions(ctx, "s1")
	assert.True(t, storage.IsNotFound(err))
	assert.True(t, storage.IsNotFound(store.DeleteSchedule(ctx, "s1")))

	// re-creating the ID starts with no exceptions
	require.NoError(t, store.CreateSchedule(ctx, &storage.Schedule{ID: "s1", Title: "Gym", StartAt: date(2025, 1, 1)}))
	dates, err := store.ListExceptions(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func testSetRecurrence(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	require.NoError(t, store.CreateSchedule(ctx, &storage.Schedule{ID: "r", Title: "Rent", StartAt: date(2025, 1, 1)}))

	spec := &recurrence.RuleSpec{Freq: "MONTHLY", IntervalCount: 1, ByMonthDay: []int{1}}
	require.NoError(t, store.SetRecurrence(ctx, "r", spec))
	got, err := store.GetSchedule(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, spec, got.Recurrence)

	err = store.SetRecurrence(ctx, "r", &recurrence.RuleSpec{Freq: "DAILY", ByDay: []string{"MO"}})
	assert.True(t, storage.IsInvalidInput(err))
	assert.ErrorIs(t, err, recurrence.ErrIllegalField)

	require.NoError(t, store.SetRecurrence(ctx, "r", nil))
	got, err = store.GetSchedule(ctx, "r")
	require.NoError(t, err)
	assert.Nil(t, got.Recurrence)

	assert.True(t, storage.IsNotFound(store.SetRecurrence(ctx, "missing", spec)))
}

func testExceptions(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	require.NoError(t, store.CreateSchedule(ctx, &storage.Schedule{ID: "e", Title: "Walk", StartAt: date(2025, 1, 1)}))

	require.NoError(t, store.AddException(ctx, "e", date(2025, 3, 1)))
	require.NoError(t, store.AddException(ctx, "e", time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC)))

	err := store.AddException(ctx, "e", date(2025, 1, 15))
	assert.True(t, storage.IsAlreadyExists(err), "got %v", err)

	dates, err := store.ListExceptions(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2025, 1, 15), date(2025, 3, 1)}, dates)

	require.NoError(t, store.RemoveException(ctx, "e", date(2025, 1, 15)))
	assert.True(t, storage.IsNotFound(store.RemoveException(ctx, "e", date(2025, 1, 15))))

	dates, err = store.ListExceptions(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2025, 3, 1)}, dates)

	assert.True(t, storage.IsNotFound(store.AddException(ctx, "missing", date(2025, 1, 1))))
	assert.True(t, storage.IsNotFound(store.RemoveException(ctx, "missing", date(2025, 1, 1))))
}

func testCopies(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	sched := &storage.Schedule{
		ID:         "copy",
		Title:      "Yoga",
		StartAt:    date(2025, 1, 6),
		Recurrence: &recurrence.RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO"}},
	}
	require.NoError(t, store.CreateSchedule(ctx, sched))
	sched.Recurrence.ByDay[0] = "FR"

	got, err := store.GetSchedule(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, []string{"MO"}, got.Recurrence.ByDay)

	got.Recurrence.ByDay[0] = "SU"
	again, err := store.GetSchedule(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, []string{"MO"}, again.Recurrence.ByDay)
}

func testConcurrentExceptions(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	require.NoError(t, store.CreateSchedule(ctx, &storage.Schedule{ID: "busy", Title: "Busy", StartAt: date(2025, 1, 1)}))

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.AddException(ctx, "busy", date(2025, 1, 1).AddDate(0, 0, i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	dates, err := store.ListExceptions(ctx, "busy")
	require.NoError(t, err)
	assert.Len(t, dates, 30)
}
