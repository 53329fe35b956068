package intent

import (
	"errors"
	"fmt"
)

var (
	// ErrClassificationUnavailable marks a cache miss that could not be
	// classified. Nothing is cached when it is returned.
	ErrClassificationUnavailable = errors.New("classification unavailable")
	// ErrMalformedTemplate is returned for templates that do not fit the action set.
	ErrMalformedTemplate = errors.New("malformed template")
)

// ClassificationError wraps the cause of a failed classification.
type ClassificationError struct {
	Key string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification unavailable for %q: %v", e.Key, e.Err)
}

func (e *ClassificationError) Unwrap() []error {
	return []error{ErrClassificationUnavailable, e.Err}
}
