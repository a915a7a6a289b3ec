package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/auth"
	authmemory "github.com/cyp0633/librecur/server/auth/memory"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/cyp0633/librecur/server/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestServer returns a server over a fresh memory store
func newTestServer(t *testing.T, opts ...Option) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New(memory.WithClock(func() time.Time { return fixedNow }))
	engine := recurrence.NewEngineWithConfig(recurrence.DefaultEngineConfig)
	t.Cleanup(engine.Close)

	opts = append([]Option{WithEngine(engine), WithClock(func() time.Time { return fixedNow })}, opts...)
	srv, err := New(store, opts...)
	require.NoError(t, err)
	return srv, store
}

// do sends a request with body encoded as JSON unless it is a string
func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func seed(t *testing.T, store storage.Storage, s *storage.Schedule, exceptions ...time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateSchedule(ctx, s))
	for _, d := range exceptions {
		require.NoError(t, store.AddException(ctx, s.ID, d))
	}
}

func TestNew_RequiresStorage(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, rec))
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/calendars", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodPatch, "/schedules", nil).Code)
}

func TestAuthentication(t *testing.T) {
	users := authmemory.New()
	require.NoError(t, users.AddUser("owner", "pw", false))
	require.NoError(t, users.AddUser("viewer", "pw", true))
	require.NoError(t, users.AddToken("owner-token", "owner"))

	srv, store := newTestServer(t, WithAuthenticator(users, "test"))
	seed(t, store, &storage.Schedule{ID: "s", Title: "S", StartAt: date(2025, 1, 1)})

	basic := func(user string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth(user, "pw")
		return req.Header.Get("Authorization")
	}

	tests := []struct {
		name   string
		method string
		path   string
		header string
		body   any
		want   int
	}{
		{"health is public", http.MethodGet, "/healthz", "", nil, http.StatusOK},
		{"anonymous", http.MethodGet, "/schedules/s", "", nil, http.StatusUnauthorized},
		{"bearer read", http.MethodGet, "/schedules/s", "Bearer owner-token", nil, http.StatusOK},
		{"basic read", http.MethodGet, "/schedules/s", basic("viewer"), nil, http.StatusOK},
		{"viewer write", http.MethodPost, "/schedules/s/exceptions", basic("viewer"), exceptionRequest{Date: "2025-01-02"}, http.StatusForbidden},
		{"owner write", http.MethodPost, "/schedules/s/exceptions", basic("owner"), exceptionRequest{Date: "2025-01-02"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.header != "" {
				headers = []string{"Authorization", tt.header}
			}
			rec := do(t, srv, tt.method, tt.path, tt.body, headers...)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Values("WWW-Authenticate"), `Bearer realm="test"`)
			}
		})
	}
	assert.Nil(t, auth.GetPrincipalFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, WithCORS("https://app.example.com"))

	rec := do(t, srv, http.MethodOptions, "/schedules", nil,
		"Origin", "https://app.example.com",
		"Access-Control-Request-Method", http.MethodPost)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, srv, http.MethodGet, "/healthz", nil, "Origin", "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv, _ := newTestServer(t, WithLogger(logger))

	do(t, srv, http.MethodPost, "/schedules", scheduleRequest{Title: "Gym", StartAt: "2025-01-01"})
	do(t, srv, http.MethodGet, "/schedules/missing", nil)

	out := buf.String()
	assert.Contains(t, out, "msg=request method=POST path=/schedules status=201")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "request_id=")
}
