package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors for generative API operations.
var (
	ErrNoAPIKey     = errors.New("llm: api key not configured")
	ErrUnauthorized = errors.New("llm: unauthorized")
	ErrRateLimited  = errors.New("llm: rate limited by server")
	ErrBadRequest   = errors.New("llm: bad request")
	ErrServer       = errors.New("llm: server error")
	ErrEmpty        = errors.New("llm: empty completion")
	ErrParse        = errors.New("llm: no JSON found in response")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op     string // "send", "parse"
	Model  string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm %s [%s] status %d: %v", e.Op, e.Model, e.Status, e.Err)
	}
	if e.Model != "" {
		return fmt.Sprintf("llm %s [%s]: %v", e.Op, e.Model, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, model string, status int, err error) error {
	return &Error{Op: op, Model: model, Status: status, Err: err}
}
