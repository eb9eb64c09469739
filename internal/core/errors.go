package core

import "errors"

// Error kinds surfaced across service boundaries. The HTTP layer maps
// these to status codes; everything else wraps them with context.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrGenerationUnavailable = errors.New("generation service not configured")
	ErrGenerationFailed      = errors.New("generation response unparsable")
)

// Field-level validation errors. All of them are ErrInvalidInput.
var (
	ErrEmptyUserID      = invalid("user id required")
	ErrEmptyItem        = invalid("item required")
	ErrInvalidDate      = invalid("invalid date")
	ErrInvalidAmount    = invalid("amount must be non-negative")
	ErrInvalidMoodScore = invalid("mood score must be between -2 and 2")
	ErrInvalidRole      = invalid("message role must be user or assistant")
	ErrEmptyContent     = invalid("message content required")
)

type fieldError struct {
	msg string
}

func (e fieldError) Error() string { return e.msg }

func (e fieldError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string) error { return fieldError{msg: msg} }
