package elks

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidArgument marks caller supplied arguments that are missing or blank.
var ErrInvalidArgument = errors.New("invalid argument")

// Error is returned by every Client operation. Err carries the underlying
// transport, decode or validation failure.
type Error struct {
	Msg string
	Err error

	// Total and Delivered are only set for failed SMS sends. Delivered counts
	// recipients confirmed by batches that succeeded before the failure.
	Total     int
	Delivered int
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "elks: " + e.Msg
	}
	return fmt.Sprintf("elks: %s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError describes a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("http %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), body)
}

// DecodeError reports a wire value that does not match its expected encoding.
type DecodeError struct {
	Value  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q: %s", e.Value, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err was caused by a 404 response.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
