package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// AuthTransport implements http.RoundTripper and adds credentials to
// outgoing requests: a bearer token when Token is set, otherwise Basic
// Auth. Requests and responses are logged at debug level.
type AuthTransport struct {
	Token     string
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBearerTransport creates an AuthTransport sending token. If transport
// is nil, http.DefaultTransport will be used.
func NewBearerTransport(token string, transport http.RoundTripper, logger *slog.Logger) *AuthTransport {
	t := newAuthTransport(transport, logger)
	t.Token = token
	return t
}

// NewBasicAuthTransport creates an AuthTransport with the given
// credentials and optional underlying transport.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *AuthTransport {
	t := newAuthTransport(transport, logger)
	t.Username = username
	t.Password = password
	return t
}

func newAuthTransport(transport http.RoundTripper, logger *slog.Logger) *AuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AuthTransport{Transport: transport, Logger: logger}
}

// RoundTrip implements the http.RoundTripper interface. It adds
// credentials to a clone of the request and delegates to the underlying
// transport.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}
	if t.Token == "" && t.Username == "" {
		return nil, errors.New("either a bearer token or a basic auth username is required")
	}

	// Log request details
	reqBody := ""
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err == nil {
			reqBody = string(bodyBytes)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Reset the body
		}
	}

	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", reqBody)

	out := req.Clone(req.Context())
	if t.Token != "" {
		out.Header.Set("Authorization", "Bearer "+t.Token)
	} else {
		out.SetBasicAuth(t.Username, t.Password)
	}
	resp, err := t.Transport.RoundTrip(out)

	if err == nil && resp != nil {
		// Log response details
		respBody := ""
		if resp.Body != nil {
			bodyBytes, err := io.ReadAll(resp.Body)
			if err == nil {
				respBody = string(bodyBytes)
				resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Reset the body
			}
		}

		t.Logger.Debug("incoming response",
			"status", resp.Status,
			"body", respBody)
	}

	return resp, err
}
