package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// HttpClientWrapper wraps http.Client with JSON request/response handling
type HttpClientWrapper interface {
	DoGET(ctx context.Context, url string, out any) error
	DoPOST(ctx context.Context, url string, in, out any) error
	DoPUT(ctx context.Context, url string, in, out any) error
	DoDELETE(ctx context.Context, url string) error
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// StatusError is returned for responses outside the 2xx range.
// Message holds the server's {"error": ...} text when present.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewHttpClientWrapper creates a new client wrapper. Authentication and
// wire logging belong in the client's transport (see AuthTransport).
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}
