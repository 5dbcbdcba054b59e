package feed

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrForbidden    = errors.New("forbidden")
)

// OpError annotates a sentinel with the failing operation.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e OpError) Unwrap() error { return e.Kind }

// NotFoundError names the missing resource ("post", "comment", "user").
type NotFoundError struct {
	Op       string
	Resource string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %v", e.Op, e.Resource, ErrNotFound)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
