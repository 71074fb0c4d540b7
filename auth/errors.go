package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired is matched by every terminal refresh outcome: a
	// missing refresh token, a rejected refresh or a refresh timeout.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshToken means a 401 arrived while no refresh token was stored.
	ErrNoRefreshToken = fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	// ErrEmptyAccessToken is returned when a refresh succeeds at the HTTP
	// level but the response carries no access token.
	ErrEmptyAccessToken = errors.New("refresh response has no access token")
)

// RefreshError is returned to every request parked behind a failed refresh.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "refreshing session: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Is reports every refresh failure as a session expiry.
func (e *RefreshError) Is(target error) bool {
	return target == ErrSessionExpired
}

// StatusError is a non-2xx answer from the refresh endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("refresh endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("refresh endpoint returned %d: %s", e.StatusCode, e.Message)
}
