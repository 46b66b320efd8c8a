package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures the swap pipeline distinguishes.
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindQuoteUnavailable  ErrorKind = "quote_unavailable"
	KindBuildFailed       ErrorKind = "build_failed"
	KindUserRejected      ErrorKind = "user_rejected"
	KindNoSignerAvailable ErrorKind = "no_signer_available"
	KindSignerError       ErrorKind = "signer_error"
)

// Error carries a kind plus an optional detail string so that the
// orchestrator can decide what to show without parsing messages.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrUserRejected)
// works regardless of detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest}
	ErrQuoteUnavailable  = &Error{Kind: KindQuoteUnavailable}
	ErrBuildFailed       = &Error{Kind: KindBuildFailed}
	ErrUserRejected      = &Error{Kind: KindUserRejected}
	ErrNoSignerAvailable = &Error{Kind: KindNoSignerAvailable}
	ErrSignerError       = &Error{Kind: KindSignerError}
)

// NewError builds a typed error with a formatted detail.
func NewError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// DetailOf returns the detail of the first *Error in err's chain, falling
// back to the wrapped cause.
func DetailOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}
