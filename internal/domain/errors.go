package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Services return them wrapped in *Error so handlers can map
// the kind to a status and show Message to the client as is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrRateLimited          = errors.New("rate limited")
	ErrInternal             = errors.New("internal error")
)

type Error struct {
	Kind    error
	Message string
	// Err is the underlying cause, kept for logs only.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Internal reports a server-side failure with a message safe to show to
// the client.
func Internal(cause error, message string) error {
	return &Error{Kind: ErrInternal, Message: message, Err: cause}
}

// Message returns the client-facing message of err, or "" when err does not
// carry one.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
