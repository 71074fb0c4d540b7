package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of a failed response is read for decoding.
const maxErrorBody = 64 << 10

// Error is a non-2xx backend response. The JSON fields mirror the backend's
// error body; StatusCode is always the HTTP status even when the body is not
// JSON.
type Error struct {
	StatusCode  int               `json:"-"`
	Timestamp   string            `json:"timestamp"`
	Status      int               `json:"status"`
	Reason      string            `json:"error"`
	Message     string            `json:"message"`
	Path        string            `json:"path"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Reason
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.FieldErrors) > 0 {
		return fmt.Sprintf("api: %d %s %v", e.StatusCode, msg, e.FieldErrors)
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, msg)
}

// decodeError builds an *Error from a failed response. The body is consumed
// but not closed.
func decodeError(resp *http.Response) error {
	e := &Error{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(raw) > 0 {
		// A non-JSON body still yields a usable error from the status line.
		_ = json.Unmarshal(raw, e)
	}
	e.StatusCode = resp.StatusCode
	return e
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// *Error.
func StatusCode(err error) int {
	if e, ok := errors.AsType[*Error](err); ok {
		return e.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
