package callflow

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-callflow/pkg/dialogue"
	"github.com/teslashibe/go-callflow/pkg/recording"
	"github.com/teslashibe/go-callflow/pkg/stt"
)

// Sentinel errors for the callflow package.
var (
	// ErrEmptyCallID is returned when a webhook carries no call identifier.
	ErrEmptyCallID = errors.New("callflow: call id is required")

	// ErrMissingDependency is returned by New when a collaborator is nil.
	ErrMissingDependency = errors.New("callflow: missing dependency")
)

// MissingInputError reports a turn webhook without a recording locator.
type MissingInputError struct {
	CallID string
	Turn   int
}

// Error implements the error interface.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("callflow: call %s turn %d: no recording received", e.CallID, e.Turn)
}

// StoreError reports that session state could not be read or written.
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("callflow: session %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// BusyError reports that an earlier webhook for the same call still held
// the call when the request gave up waiting.
type BusyError struct {
	CallID string
	Err    error
}

// Error implements the error interface.
func (e *BusyError) Error() string {
	return fmt.Sprintf("callflow: call %s busy: %v", e.CallID, e.Err)
}

// Unwrap returns the context error.
func (e *BusyError) Unwrap() error {
	return e.Err
}

// FailureKind names a turn-local failure.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureMissingInput  FailureKind = "missing_input"
	FailureRetrieval     FailureKind = "retrieval"
	FailureTranscription FailureKind = "transcription"
	FailureGeneration    FailureKind = "generation"
	FailureStore         FailureKind = "store"
	FailureBusy          FailureKind = "busy"
)

// KindOf classifies a turn-local failure.
func KindOf(err error) FailureKind {
	var (
		missing *MissingInputError
		re      *recording.RetrievalError
		te      *stt.TranscriptionError
		ge      *dialogue.GenerationError
		se      *StoreError
		be      *BusyError
	)
	switch {
	case err == nil:
		return FailureNone
	case errors.As(err, &missing):
		return FailureMissingInput
	case errors.As(err, &re):
		return FailureRetrieval
	case errors.As(err, &te):
		return FailureTranscription
	case errors.As(err, &ge):
		return FailureGeneration
	case errors.As(err, &se):
		return FailureStore
	case errors.As(err, &be):
		return FailureBusy
	default:
		return FailureGeneration
	}
}

// asRetrieval keeps typed errors and wraps anything else from the retriever.
func asRetrieval(locator string, err error) error {
	if recording.IsRetrievalError(err) {
		return err
	}
	return &recording.RetrievalError{URL: locator, Kind: recording.KindUnavailable, Err: err}
}

func asTranscription(err error) error {
	if stt.IsTranscriptionError(err) {
		return err
	}
	return &stt.TranscriptionError{Provider: "unknown", Reason: stt.ReasonProvider, Err: err}
}

func asGeneration(err error) error {
	if dialogue.IsGenerationError(err) {
		return err
	}
	return &dialogue.GenerationError{Reason: dialogue.ReasonProvider, Err: err}
}
