package chatapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyMessage is returned by SendMessage for empty text. No request is
// made.
var ErrEmptyMessage = errors.New("chatapi: empty message")

// Error is a transport failure: the request could not be sent, the backend
// answered with a non-2xx status, or the response body was malformed.
type Error struct {
	// Op is the API operation, e.g. "chat" or "list sessions".
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// RequestID is the X-Request-Id sent with the request.
	RequestID string

	// Message is the backend's error detail, if any.
	Message string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chatapi: %s", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request_id=%s)", e.RequestID)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether the backend answered 404.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsServerError reports whether the backend answered 5xx.
func (e *Error) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// IsCanceled reports whether the request was aborted by its context.
func (e *Error) IsCanceled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

// AsError tries to convert err to *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
