package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/go-chi/chi/v5"
)

// maxBodySize bounds request bodies
const maxBodySize = 1 << 20

// errorResponse is the body of every non-2xx JSON response
type errorResponse struct {
	Error string `json:"error"`
}

// badRequest marks errors caused by the request itself
type badRequest struct {
	err error
}

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func badRequestf(format string, args ...any) error {
	return badRequest{err: fmt.Errorf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps an error onto an HTTP status code
func statusFor(err error) int {
	var (
		br   badRequest
		verr *recurrence.ValidationError
		perr *recurrence.ParseError
	)
	switch {
	case storage.IsNotFound(err):
		return http.StatusNotFound
	case storage.IsAlreadyExists(err):
		return http.StatusConflict
	case storage.IsInvalidInput(err), errors.As(err, &br), errors.As(err, &verr), errors.As(err, &perr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with statusFor(err). Internal errors are logged and
// not echoed to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		msg = http.StatusText(status)
	} else {
		s.logger.Debug("request rejected",
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON value into v
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return badRequestf("invalid JSON body: %w", err)
	}
	return nil
}

// readBody reads the raw request body
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, badRequestf("failed to read body: %w", err)
	}
	return data, nil
}

func scheduleID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// intParam parses an optional non-negative integer query parameter
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequestf("invalid %s: %q", name, raw)
	}
	return n, nil
}

// lang picks the summary language from ?lang= or Accept-Language
func lang(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return l
	}
	return r.Header.Get(headerAcceptLang)
}
