package domain

import "errors"

// Error kinds. Every domain error wraps exactly one of these so transports
// can map it without knowing the concrete sentinel.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error is a domain error with a client-facing message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the error kind wrapped by e.
func (e *Error) Kind() error { return e.kind }

func InvalidArgument(msg string) error {
	return &Error{kind: ErrInvalidArgument, msg: msg}
}

func NotFound(msg string) error {
	return &Error{kind: ErrNotFound, msg: msg}
}

func Conflict(msg string) error {
	return &Error{kind: ErrConflict, msg: msg}
}
