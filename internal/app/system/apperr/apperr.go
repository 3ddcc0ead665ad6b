// Package apperr defines the failure kinds returned by workflow operations.
//
// Every failure carries a machine-checkable Kind and a short human-readable
// message. Callers (the HTTP layer, the CLI) switch on the kind; the message
// is safe to show to end users. The underlying cause, if any, is kept for
// logging and is reachable through errors.Unwrap.
package apperr

import (
	"context"
	"errors"
)

// Kind classifies a failure.
type Kind string

const (
	NotFound         Kind = "not_found"
	AlreadyProcessed Kind = "already_processed"
	Forbidden        Kind = "forbidden"
	Conflict         Kind = "conflict"
	Validation       Kind = "validation"
	Storage          Kind = "storage"
)

// Error is a tagged failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Msg + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a failure of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap returns a failure of the given kind that keeps err as its cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// StorageErr wraps a transport, timeout, or transaction failure.
func StorageErr(err error) *Error {
	msg := "storage operation failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "storage operation timed out"
	}
	return &Error{Kind: Storage, Msg: msg, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are treated
// as Storage; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Storage
}

// Is reports whether err is a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return "storage operation failed"
}
