package music

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error normalizes provider-specific failures. Transient errors drive the
// orchestrator's fallback to the next configured provider; non-transient
// errors are caller mistakes that no other provider can fix.
type Error struct {
	Transient bool
	Message   string
}

func (e *Error) Error() string {
	return e.Message
}

// IsTransient reports whether err is a provider error worth retrying on a
// different backend. Unclassified errors (network failures, timeouts) count
// as transient.
func IsTransient(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Transient
	}
	return true
}

// statusError classifies an HTTP response status. Rate limiting and server
// errors are transient; anything else in the 4xx range echoes a bad request
// back at the caller.
func statusError(provider string, status int, body string) *Error {
	transient := status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	msg := fmt.Sprintf("%s: unexpected status %d", provider, status)
	if trimmed := strings.TrimSpace(body); trimmed != "" {
		msg = fmt.Sprintf("%s: %s", msg, trimmed)
	}
	return &Error{Transient: transient, Message: msg}
}

// transportError wraps a failed round trip; always transient.
func transportError(provider string, err error) *Error {
	return &Error{Transient: true, Message: fmt.Sprintf("%s: request failed: %v", provider, err)}
}
