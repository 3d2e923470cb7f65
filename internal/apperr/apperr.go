package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the operation boundary. Handlers map kinds to
// HTTP status codes; services and stores return nothing else.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalid
	KindAuth
)

// Error carries a kind and a human-readable message, optionally wrapping a
// cause for logging.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a missing-entity error.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

// Conflict builds a duplicate/uniqueness error.
func Conflict(msg string) error { return &Error{Kind: KindConflict, Msg: msg} }

// Invalid builds a malformed-input error.
func Invalid(msg string) error { return &Error{Kind: KindInvalid, Msg: msg} }

// Auth is the single collapsed authentication failure. All credential checks
// fail with this same message so callers learn nothing about which check broke.
func Auth() error { return &Error{Kind: KindAuth, Msg: "Authentication failed"} }

// Internal wraps an unexpected failure behind a generic message.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Msg: "Something went wrong, please try again later", Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing message for err. Untyped errors collapse to
// the generic internal message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Something went wrong, please try again later"
}
