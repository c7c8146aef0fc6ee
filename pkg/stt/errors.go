package stt

import (
	"errors"
	"fmt"
)

// ErrNoAPIKey is returned when the provider requires an API key.
var ErrNoAPIKey = errors.New("stt: API key required")

// Reasons reported by TranscriptionError.
const (
	ReasonEmptyAudio  = "empty audio"
	ReasonProvider    = "provider error"
	ReasonTimeout     = "timeout"
	ReasonUnsupported = "unsupported format"
)

// TranscriptionError reports a failed transcription.
type TranscriptionError struct {
	Provider string
	Reason   string
	Err      error
}

// Error implements the error interface.
func (e *TranscriptionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stt [%s]: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("stt [%s]: %s: %v", e.Provider, e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// IsTranscriptionError reports whether err is or wraps a TranscriptionError.
func IsTranscriptionError(err error) bool {
	var te *TranscriptionError
	return errors.As(err, &te)
}
