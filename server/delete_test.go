package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/cyp0633/librecur/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteSchedule(t *testing.T) {
	srv, store := newTestServer(t)
	seed(t, store, newWeekly("w"), date(2025, 1, 8))

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/schedules/w", nil).Code)
	_, err := store.GetSchedule(context.Background(), "w")
	assert.True(t, storage.IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/schedules/w", nil).Code)
}

func TestDeleteRecurrence(t *testing.T) {
	srv, store := newTestServer(t)
	seed(t, store, newWeekly("w"))

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/schedules/w/recurrence", nil).Code)
	got, err := store.GetSchedule(context.Background(), "w")
	require.NoError(t, err)
	assert.Nil(t, got.Recurrence)

	rec := do(t, srv, http.MethodGet, "/schedules/w/occurrences", nil)
	assert.Equal(t, []string{"2025-01-06"}, decode[occurrencesResponse](t, rec).Occurrences)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/schedules/nope/recurrence", nil).Code)
}

func TestDeleteException(t *testing.T) {
	srv, store := newTestServer(t)
	seed(t, store, newWeekly("w"), date(2025, 1, 8))

	rec := do(t, srv, http.MethodGet, "/schedules/w/occurrences?count=2", nil)
	assert.Equal(t, []string{"2025-01-06", "2025-01-13"}, decode[occurrencesResponse](t, rec).Occurrences)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/schedules/w/exceptions/2025-01-08", nil).Code)

	rec = do(t, srv, http.MethodGet, "/schedules/w/occurrences?count=2", nil)
	assert.Equal(t, []string{"2025-01-06", "2025-01-08"}, decode[occurrencesResponse](t, rec).Occurrences)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/schedules/w/exceptions/2025-01-08", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodDelete, "/schedules/w/exceptions/someday", nil).Code)
}
