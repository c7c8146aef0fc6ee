// Package callflow runs a spoken interview over stateless telephony
// webhooks.
//
// Every webhook is one turn. The Controller reloads the call's session from
// the store, runs fetch, transcribe, extract, save and generate, then answers
// with a voice-response document that either asks the next question or ends
// the call. Failures inside a turn never advance it: the caller hears an
// apology and is asked to answer the same turn again.
package callflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-callflow/pkg/dialogue"
	"github.com/teslashibe/go-callflow/pkg/names"
	"github.com/teslashibe/go-callflow/pkg/session"
	"github.com/teslashibe/go-callflow/pkg/stt"
	"github.com/teslashibe/go-callflow/pkg/twiml"
)

// Retriever fetches the audio for a provider recording locator.
type Retriever interface {
	FetchRecording(ctx context.Context, locator string) ([]byte, error)
}

// Deps are the controller's collaborators.
type Deps struct {
	Store       session.Store
	Retriever   Retriever
	Transcriber stt.Transcriber
	Engine      dialogue.Engine
}

// TurnRequest is one answer webhook.
type TurnRequest struct {
	CallID string

	// Turn is the index being answered. A negative value means unknown and
	// resolves to the session's pending turn.
	Turn int

	// RecordingURL is the provider's recording locator, without media suffix.
	RecordingURL string
}

// Outcome says how a webhook was answered.
type Outcome string

const (
	OutcomeGreeting Outcome = "greeting"
	OutcomeNext     Outcome = "next"
	OutcomeClosed   Outcome = "closed"
	OutcomeComplete Outcome = "complete"
	OutcomeRetry    Outcome = "retry"
)

// Result is the answer to one webhook.
type Result struct {
	Response *twiml.Response
	Outcome  Outcome

	// Turn is the turn the response asks to record next, or the turn just
	// closed when nothing more is recorded.
	Turn int

	// Failure is the turn-local error behind an OutcomeRetry.
	Failure error
}

// Controller drives the interview state machine.
type Controller struct {
	deps    Deps
	config  *Config
	builder *twiml.Builder
	locks   *keyedMutex
	stats   *counters
	logger  *slog.Logger
}

// New creates a Controller.
func New(deps Deps, opts ...Option) (*Controller, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case deps.Retriever == nil:
		return nil, fmt.Errorf("%w: retriever", ErrMissingDependency)
	case deps.Transcriber == nil:
		return nil, fmt.Errorf("%w: transcriber", ErrMissingDependency)
	case deps.Engine == nil:
		return nil, fmt.Errorf("%w: engine", ErrMissingDependency)
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		deps:    deps,
		config:  cfg,
		builder: twiml.NewBuilder(cfg.Voice, cfg.ActionPath),
		locks:   newKeyedMutex(),
		stats:   newCounters(),
		logger:  cfg.Logger.With("component", "callflow"),
	}, nil
}

// Stats returns a snapshot of the controller counters.
func (c *Controller) Stats() Stats {
	return c.stats.snapshot()
}

// Session returns the stored session for callID.
func (c *Controller) Session(ctx context.Context, callID string) (*session.Session, bool, error) {
	return c.deps.Store.Load(ctx, callID)
}

// Begin starts (or restarts) the interview for callID. Prior state is reset:
// turn 0 is pending, the call is not complete and history is empty.
func (c *Controller) Begin(ctx context.Context, callID, caller string) (*Result, error) {
	if callID == "" {
		return nil, ErrEmptyCallID
	}
	unlock, err := c.locks.Lock(ctx, callID)
	if err != nil {
		c.stats.fail(FailureBusy)
		return nil, &BusyError{CallID: callID, Err: err}
	}
	defer unlock()

	now := c.config.Now()
	sess, ok, err := c.deps.Store.Load(ctx, callID)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("load failed, starting fresh", "call_id", callID, "error", err)
		}
		sess = session.New(callID, now)
	}
	sess.Reset(caller, now)

	if err := c.deps.Store.Save(ctx, sess); err != nil {
		// The next turn recreates the session lazily, so the greeting still goes out.
		c.stats.fail(FailureStore)
		c.logger.Error("save failed on begin", "call_id", callID, "error", err)
	}

	c.stats.started.Add(1)
	c.emit(Event{Type: EventStarted, CallID: callID, Turn: 0, Reply: c.config.Prompts.Greeting, At: now})
	c.logger.Info("call started", "call_id", callID, "caller", caller)

	return &Result{
		Response: c.builder.SpeakAndRecord(c.config.Prompts.Greeting, 0),
		Outcome:  OutcomeGreeting,
		Turn:     0,
	}, nil
}

// HandleTurn processes one answer. Turn-local failures are reported in the
// Result, never as an error; the error return is only for a missing call id.
func (c *Controller) HandleTurn(ctx context.Context, req TurnRequest) (*Result, error) {
	if req.CallID == "" {
		return nil, ErrEmptyCallID
	}
	log := c.logger.With("call_id", req.CallID)

	unlock, err := c.locks.Lock(ctx, req.CallID)
	if err != nil {
		// the provider has given up on this request; ask for the turn again
		turn := req.Turn
		if turn < 0 {
			turn = 0
		}
		return c.retry(log, req.CallID, turn, &BusyError{CallID: req.CallID, Err: err}), nil
	}
	defer unlock()

	sess, ok, err := c.deps.Store.Load(ctx, req.CallID)
	if err != nil {
		turn := req.Turn
		if turn < 0 {
			turn = 0
		}
		return c.retry(log, req.CallID, turn, &StoreError{Op: "load", Err: err}), nil
	}
	if !ok {
		sess = session.New(req.CallID, c.config.Now())
	}

	if sess.Complete {
		c.stats.replayed.Add(1)
		c.emit(Event{Type: EventReplayed, CallID: req.CallID, Turn: sess.TurnIndex, At: c.config.Now()})
		log.Debug("turn after completion", "turn", req.Turn)
		return &Result{
			Response: c.builder.Speak(c.config.Prompts.Complete),
			Outcome:  OutcomeComplete,
			Turn:     sess.TurnIndex,
		}, nil
	}

	turn := req.Turn
	if turn < 0 {
		turn = sess.TurnIndex
	}
	if turn != sess.TurnIndex {
		log.Warn("turn out of order", "turn", turn, "pending", sess.TurnIndex)
	}

	if sess.ReplyPending(turn) {
		// answer already saved; only the reply failed last time
		log.Debug("regenerating reply", "turn", turn)
		return c.reply(ctx, log, sess, turn)
	}

	if req.RecordingURL == "" {
		return c.retry(log, req.CallID, turn, &MissingInputError{CallID: req.CallID, Turn: turn}), nil
	}

	audio, err := c.deps.Retriever.FetchRecording(ctx, req.RecordingURL)
	if err != nil {
		return c.retry(log, req.CallID, turn, asRetrieval(req.RecordingURL, err)), nil
	}

	text, err := c.deps.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return c.retry(log, req.CallID, turn, asTranscription(err)), nil
	}

	now := c.config.Now()
	speaker := session.SpeakerSubject
	if turn == 0 {
		id := names.Extract(text)
		sess.SetIdentity(id.FirstName, id.PreferredName, now)
		speaker = session.SpeakerIntroduction
	}
	sess.Append(speaker, text, now)
	if turn == sess.TurnIndex {
		sess.MarkAnswered(now)
	}

	// The answer is persisted before generation so a generation failure
	// cannot lose it.
	if err := c.deps.Store.Save(ctx, sess); err != nil {
		return c.retry(log, req.CallID, turn, &StoreError{Op: "save", Err: err}), nil
	}
	c.stats.answered.Add(1)
	c.emit(Event{Type: EventAnswered, CallID: req.CallID, Turn: turn, Text: text, At: now})

	return c.reply(ctx, log, sess, turn)
}

// reply generates the next line for an answered turn, then advances or
// closes the call.
func (c *Controller) reply(ctx context.Context, log *slog.Logger, sess *session.Session, turn int) (*Result, error) {
	id := names.Identity{FirstName: sess.FirstName, PreferredName: sess.PreferredName}
	reply, err := c.deps.Engine.NextUtterance(ctx, id, sess.History)
	if err != nil {
		return c.retry(log, sess.CallID, turn, asGeneration(err)), nil
	}

	now := c.config.Now()
	closing := dialogue.IsClosing(reply, c.config.ClosingPhrase)
	sess.Advance(turn+1, now)
	if closing {
		sess.MarkComplete(now)
	}
	if err := c.deps.Store.Save(ctx, sess); err != nil {
		return c.retry(log, sess.CallID, turn, &StoreError{Op: "save", Err: err}), nil
	}

	if closing {
		c.stats.completed.Add(1)
		c.emit(Event{Type: EventCompleted, CallID: sess.CallID, Turn: turn, Reply: reply, At: now})
		log.Info("call complete", "turns", len(sess.History))
		return &Result{
			Response: c.builder.Speak(reply),
			Outcome:  OutcomeClosed,
			Turn:     turn,
		}, nil
	}

	log.Debug("turn answered", "turn", turn, "next", turn+1)
	return &Result{
		Response: c.builder.SpeakAndRecord(reply, turn+1),
		Outcome:  OutcomeNext,
		Turn:     turn + 1,
	}, nil
}

// retry answers a turn-local failure by asking for the same turn again.
func (c *Controller) retry(log *slog.Logger, callID string, turn int, failure error) *Result {
	kind := KindOf(failure)
	c.stats.fail(kind)
	c.emit(Event{Type: EventRetry, CallID: callID, Turn: turn, Failure: kind, At: c.config.Now()})
	log.Warn("turn failed", "turn", turn, "failure", string(kind), "error", failure)

	return &Result{
		Response: c.builder.SpeakAndRecord(c.config.Prompts.forFailure(kind), turn),
		Outcome:  OutcomeRetry,
		Turn:     turn,
		Failure:  failure,
	}
}

func (c *Controller) emit(e Event) {
	for _, o := range c.config.Observers {
		o.OnEvent(e)
	}
}
