package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a storage error carrying the HTTP status it maps to.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so a sentinel copied with a new
// message still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a copy of e with msg.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Err: e.Err}
}

// Sentinel errors shared by the SQLite and Badger stores.
var (
	ErrNotFound      = &Error{Code: http.StatusNotFound, Message: "resource not found"}
	ErrAlreadyExists = &Error{Code: http.StatusConflict, Message: "resource already exists"}
	ErrInvalidInput  = &Error{Code: http.StatusBadRequest, Message: "invalid input"}

	// ErrUnsupported is returned by backends that lack an operation, such
	// as an atomic counter increment.
	ErrUnsupported = &Error{Code: http.StatusNotImplemented, Message: "operation not supported"}
)
