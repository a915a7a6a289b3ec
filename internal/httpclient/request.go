package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const mimeTypeJSON = "application/json"

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 << 10

// DoGET sends a GET request and decodes the JSON response into out
func (c *httpClientWrapper) DoGET(ctx context.Context, urlStr string, out any) error {
	return c.doJSON(ctx, http.MethodGet, urlStr, nil, out)
}

// DoPOST sends in as JSON and decodes the response into out
func (c *httpClientWrapper) DoPOST(ctx context.Context, urlStr string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, urlStr, in, out)
}

// DoPUT sends in as JSON and decodes the response into out
func (c *httpClientWrapper) DoPUT(ctx context.Context, urlStr string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, urlStr, in, out)
}

func (c *httpClientWrapper) doJSON(ctx context.Context, method, urlStr string, in, out any) error {
	c.logger.Debug("starting request",
		"method", method,
		"url", urlStr)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.send(ctx, method, urlStr, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Debug("failed to decode response", "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("request complete", "method", method, "status", resp.Status)
	return nil
}

// send resolves urlStr, performs the request and turns non-2xx responses
// into *StatusError. The caller closes the body of a successful response.
func (c *httpClientWrapper) send(ctx context.Context, method, urlStr string, body io.Reader) (*http.Response, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, fmt.Errorf("failed to resolve URL %q: %w", urlStr, err)
	}
	c.logger.Debug("resolved URL", "url", resolvedURL.String())

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Accept", mimeTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", mimeTypeJSON)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}

	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		c.logger.Debug("unexpected status code",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	return resp, nil
}

// errorMessage extracts {"error": "..."} from body, falling back to the raw text.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return string(bytes.TrimSpace(data))
}
