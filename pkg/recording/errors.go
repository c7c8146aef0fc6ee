package recording

import (
	"errors"
	"fmt"
)

// ErrEmptyLocator is returned when no recording locator was supplied.
var ErrEmptyLocator = errors.New("recording: locator required")

// Kind distinguishes why a fetch failed.
type Kind int

const (
	// KindUnavailable means no attempt ever produced a successful response.
	KindUnavailable Kind = iota

	// KindInvalid means a successful response arrived but its body was unusable.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// StatusError is a non-2xx response from the recording host.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recording: unexpected status %d", e.StatusCode)
}

// RetrievalError reports a recording that could not be fetched after all
// attempts were spent.
type RetrievalError struct {
	URL      string
	Attempts int
	Kind     Kind

	// Err is the error from the last attempt.
	Err error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("recording %s after %d attempt(s): %s: %v",
		e.Kind, e.Attempts, e.URL, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// IsRetrievalError reports whether err is or wraps a RetrievalError.
func IsRetrievalError(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}
