package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing is wrapped when a required key has no value.
	ErrMissing = errors.New("missing required value")
	// ErrInvalid is wrapped when a value cannot be parsed or is out of range.
	ErrInvalid = errors.New("invalid value")
)

// Error reports a configuration key that is missing or malformed.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func missing(key string) *Error {
	return &Error{Key: key, Err: ErrMissing}
}

func invalid(key, format string, args ...any) *Error {
	return &Error{Key: key, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)}
}
