package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameters means the request cannot be generated as given.
	// It is always returned before the provider is called.
	ErrInvalidParameters = errors.New("invalid generation parameters")
	// ErrGenerationUnavailable means the provider failed, was rate limited or timed out.
	ErrGenerationUnavailable = errors.New("plan generation unavailable")
	// ErrGenerationParse means the provider answered with unusable content.
	ErrGenerationParse = errors.New("plan generation returned unusable content")
	// ErrInvalidContent means a plan document does not match its schema.
	ErrInvalidContent = errors.New("invalid plan content")
)

// ParseError carries the raw provider output that failed to decode or validate.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrGenerationParse.Error(), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrGenerationParse) hold for any *ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrGenerationParse
}
