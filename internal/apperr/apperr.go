// Package apperr defines the error kinds shared by every layer. Storage and
// service code wrap one of the kinds; the HTTP layer maps kinds to status codes.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrStorage         = errors.New("storage failure")
)

// Error pairs a kind with a message that is safe to show to API callers.
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Message returns the caller-facing message of the first Error in the chain,
// or "" when there is none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}
