package recurclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/cyp0633/librecur/internal/httpclient"
	"github.com/cyp0633/librecur/recurrence"
)

// mockHTTPClient answers requests from canned JSON keyed by path
type mockHTTPClient struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
	sent      map[string]any
}

var _ httpclient.HttpClientWrapper = (*mockHTTPClient)(nil)

func newMockClient() *mockHTTPClient {
	return &mockHTTPClient{
		responses: map[string]string{},
		errs:      map[string]error{},
		sent:      map[string]any{},
	}
}

func (m *mockHTTPClient) answer(method, path string, in, out any) error {
	key := method + " " + path
	m.calls = append(m.calls, key)
	if in != nil {
		m.sent[key] = in
	}
	if err, ok := m.errs[key]; ok {
		return err
	}
	if body, ok := m.responses[key]; ok && out != nil {
		return json.Unmarshal([]byte(body), out)
	}
	return nil
}

func (m *mockHTTPClient) DoGET(_ context.Context, path string, out any) error {
	return m.answer("GET", path, nil, out)
}

func (m *mockHTTPClient) DoPOST(_ context.Context, path string, in, out any) error {
	return m.answer("POST", path, in, out)
}

func (m *mockHTTPClient) DoPUT(_ context.Context, path string, in, out any) error {
	return m.answer("PUT", path, in, out)
}

func (m *mockHTTPClient) DoDELETE(_ context.Context, path string) error {
	return m.answer("DELETE", path, nil, nil)
}

func newTestClient(m *mockHTTPClient) *Client {
	return newClient(m, recurrence.NewEngine(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}
