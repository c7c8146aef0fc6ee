package callflow

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-callflow/pkg/dialogue"
	"github.com/teslashibe/go-callflow/pkg/twiml"
)

// Prompts are the fixed lines the controller speaks itself.
type Prompts struct {
	Greeting      string
	Complete      string
	MissingInput  string
	Retrieval     string
	Transcription string
	Generation    string
}

// DefaultPrompts returns the standard spoken lines.
func DefaultPrompts() Prompts {
	return Prompts{
		Greeting:      "Hi! Thanks for calling. I'd like to get to know you better. Can I please have your full name?",
		Complete:      "The call is complete. Thank you for your time.",
		MissingInput:  "I'm sorry, I didn't receive your response. Could you please try again?",
		Retrieval:     "I'm having trouble hearing you. Could you please speak a bit louder?",
		Transcription: "I'm sorry, there was a technical issue understanding your answer. Let's try again.",
		Generation:    "I'm having trouble processing your response. Let's try again.",
	}
}

// forFailure picks the apology for a failure kind.
func (p Prompts) forFailure(kind FailureKind) string {
	switch kind {
	case FailureMissingInput:
		return p.MissingInput
	case FailureRetrieval:
		return p.Retrieval
	case FailureTranscription:
		return p.Transcription
	default:
		return p.Generation
	}
}

// Config holds controller settings.
type Config struct {
	Prompts       Prompts
	ClosingPhrase string
	Voice         twiml.Voice
	ActionPath    string
	Observers     []Observer
	Now           func() time.Time
	Logger        *slog.Logger
}

// Option is a functional option for configuring the controller.
type Option func(*Config)

// WithPrompts replaces the spoken lines. Empty fields keep their defaults.
func WithPrompts(p Prompts) Option {
	return func(c *Config) {
		set := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		set(&c.Prompts.Greeting, p.Greeting)
		set(&c.Prompts.Complete, p.Complete)
		set(&c.Prompts.MissingInput, p.MissingInput)
		set(&c.Prompts.Retrieval, p.Retrieval)
		set(&c.Prompts.Transcription, p.Transcription)
		set(&c.Prompts.Generation, p.Generation)
	}
}

// WithClosingSentence sets the sentence whose presence ends the call.
func WithClosingSentence(s string) Option {
	return func(c *Config) { c.ClosingPhrase = dialogue.ClosingPhrase(s) }
}

// WithVoice sets the speech presentation.
func WithVoice(v twiml.Voice) Option {
	return func(c *Config) { c.Voice = v }
}

// WithActionPath sets the path recorded answers are posted to.
func WithActionPath(path string) Option {
	return func(c *Config) { c.ActionPath = path }
}

// WithObserver adds an event observer.
func WithObserver(o Observer) Option {
	return func(c *Config) { c.Observers = append(c.Observers, o) }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) { c.Now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the standard controller settings.
func DefaultConfig() *Config {
	return &Config{
		Prompts:       DefaultPrompts(),
		ClosingPhrase: dialogue.ClosingPhrase(dialogue.DefaultClosingSentence),
		Voice:         twiml.DefaultVoice(),
		ActionPath:    twiml.DefaultActionPath,
		Now:           time.Now,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
