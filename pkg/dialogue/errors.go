package dialogue

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned when an LLM engine is created without a provider.
var ErrNoProvider = errors.New("dialogue: provider required")

// Reasons reported by GenerationError.
const (
	ReasonProvider = "provider error"
	ReasonTimeout  = "timeout"
	ReasonEmpty    = "empty output"
)

// GenerationError reports that no next utterance could be produced.
type GenerationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "dialogue: " + e.Reason
	}
	return fmt.Sprintf("dialogue: %s: %v", e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err is or wraps a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
