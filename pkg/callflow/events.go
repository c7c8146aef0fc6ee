package callflow

import (
	"sync/atomic"
	"time"
)

// EventType names a call lifecycle event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventAnswered  EventType = "answered"
	EventRetry     EventType = "retry"
	EventCompleted EventType = "completed"
	EventReplayed  EventType = "replayed"
)

// Event describes something that happened on a call.
type Event struct {
	Type    EventType   `json:"type"`
	CallID  string      `json:"call_id"`
	Turn    int         `json:"turn"`
	Text    string      `json:"text,omitempty"`
	Reply   string      `json:"reply,omitempty"`
	Failure FailureKind `json:"failure,omitempty"`
	At      time.Time   `json:"at"`
}

// Observer receives events. OnEvent runs while the call's turn lock is held,
// so it must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Stats is a point-in-time copy of the controller counters.
type Stats struct {
	CallsStarted          int64 `json:"calls_started"`
	CallsCompleted        int64 `json:"calls_completed"`
	TurnsAnswered         int64 `json:"turns_answered"`
	Replayed              int64 `json:"replayed"`
	MissingInputs         int64 `json:"missing_inputs"`
	RetrievalFailures     int64 `json:"retrieval_failures"`
	TranscriptionFailures int64 `json:"transcription_failures"`
	GenerationFailures    int64 `json:"generation_failures"`
	StoreFailures         int64 `json:"store_failures"`
	BusyTurns             int64 `json:"busy_turns"`
}

type counters struct {
	started, completed, answered, replayed atomic.Int64
	failures                               map[FailureKind]*atomic.Int64
}

func newCounters() *counters {
	return &counters{
		failures: map[FailureKind]*atomic.Int64{
			FailureMissingInput:  new(atomic.Int64),
			FailureRetrieval:     new(atomic.Int64),
			FailureTranscription: new(atomic.Int64),
			FailureGeneration:    new(atomic.Int64),
			FailureStore:         new(atomic.Int64),
			FailureBusy:          new(atomic.Int64),
		},
	}
}

func (c *counters) fail(kind FailureKind) {
	if n, ok := c.failures[kind]; ok {
		n.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		CallsStarted:          c.started.Load(),
		CallsCompleted:        c.completed.Load(),
		TurnsAnswered:         c.answered.Load(),
		Replayed:              c.replayed.Load(),
		MissingInputs:         c.failures[FailureMissingInput].Load(),
		RetrievalFailures:     c.failures[FailureRetrieval].Load(),
		TranscriptionFailures: c.failures[FailureTranscription].Load(),
		GenerationFailures:    c.failures[FailureGeneration].Load(),
		StoreFailures:         c.failures[FailureStore].Load(),
		BusyTurns:             c.failures[FailureBusy].Load(),
	}
}
