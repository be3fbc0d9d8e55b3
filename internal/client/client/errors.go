package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable is a transport failure: the request never reached the
	// server, timed out, or the response could not be parsed.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized means the access token was rejected (401). It is the
	// only status that triggers a token refresh.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is matched by an *APIError with status 403: the token is
	// valid but the action is not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrSessionExpired is terminal: the refresh token itself is no longer
	// accepted and the user has to log in again.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrNotFound is matched by an *APIError with status 404.
	ErrNotFound = errors.New("not found")
)

// APIError is an application-level failure reported by the server, either as
// a non-2xx status or as a {"success": false} envelope. Message is the
// server's text, verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return e.Message
}

// Is lets callers match status classes with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnavailable:
		return e.Status == http.StatusBadGateway ||
			e.Status == http.StatusServiceUnavailable ||
			e.Status == http.StatusGatewayTimeout
	}
	return false
}

// UserMessage turns any error returned by this package into the text shown
// next to the action that triggered it.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired, please log in again."
	case errors.As(err, &apiErr) && !errors.Is(err, ErrUnavailable):
		return apiErr.Error()
	case errors.Is(err, ErrUnavailable):
		return "The server is unreachable, please try again."
	default:
		return err.Error()
	}
}
