// Package recurclient talks to the schedule API and expands stored rules
// locally with the recurrence engine.
package recurclient

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyp0633/librecur/internal/httpclient"
	"github.com/cyp0633/librecur/recurrence"
)

// Client is a schedule API client. It is safe for concurrent use.
type Client struct {
	httpClient httpclient.HttpClientWrapper
	engine     *recurrence.Engine
	logger     *slog.Logger
}

type options struct {
	client   *http.Client
	token    string
	username string
	password string
	logger   *slog.Logger
	engine   *recurrence.Engine
}

// Option configures a Client
type Option func(*options)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped
// when credentials are configured.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithToken authenticates with a bearer token
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithBasicAuth authenticates with a username and password
func WithBasicAuth(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithLogger sets the logger for requests and local expansion
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEngine sets the engine used by NextOccurrences
func WithEngine(engine *recurrence.Engine) Option {
	return func(o *options) {
		if engine != nil {
			o.engine = engine
		}
	}
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{
		client: http.DefaultClient,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		engine: recurrence.NewEngine(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	// resolve relative paths below the base path
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	client := o.client
	if client == nil {
		client = http.DefaultClient
	}
	if o.token != "" || o.username != "" {
		wrapped := *client
		if o.token != "" {
			wrapped.Transport = httpclient.NewBearerTransport(o.token, client.Transport, o.logger)
		} else {
			wrapped.Transport = httpclient.NewBasicAuthTransport(o.username, o.password, client.Transport, o.logger)
		}
		client = &wrapped
	}

	wrapper, err := httpclient.NewHttpClientWrapper(client, *u, o.logger)
	if err != nil {
		return nil, err
	}
	return newClient(wrapper, o.engine, o.logger), nil
}

func newClient(wrapper httpclient.HttpClientWrapper, engine *recurrence.Engine, logger *slog.Logger) *Client {
	return &Client{httpClient: wrapper, engine: engine, logger: logger}
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// apiError converts transport status errors into *APIError
func apiError(err error) error {
	var serr *httpclient.StatusError
	if errors.As(err, &serr) {
		return &APIError{StatusCode: serr.StatusCode, Message: serr.Message}
	}
	return err
}

func schedulePath(id string, parts ...string) string {
	return strings.Join(append([]string{"schedules", url.PathEscape(id)}, parts...), "/")
}
