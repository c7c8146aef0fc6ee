package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-callflow/pkg/inference"
	"github.com/teslashibe/go-callflow/pkg/names"
	"github.com/teslashibe/go-callflow/pkg/session"
)

// LLM is an Engine backed by a chat-completion provider.
type LLM struct {
	provider        inference.Provider
	closingSentence string
	model           string
	temperature     float64
	logger          *slog.Logger
}

// Option configures an LLM engine.
type Option func(*LLM)

// WithClosingSentence sets the sentence the model must say to end the call.
func WithClosingSentence(s string) Option {
	return func(l *LLM) { l.closingSentence = s }
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(l *LLM) { l.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(l *LLM) { l.temperature = t }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LLM) { l.logger = logger }
}

// NewLLM creates an engine over provider.
func NewLLM(provider inference.Provider, opts ...Option) (*LLM, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	l := &LLM{
		provider:        provider,
		closingSentence: DefaultClosingSentence,
		temperature:     0.7,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "dialogue")
	return l, nil
}

// ClosingSentence returns the configured closing sentence.
func (l *LLM) ClosingSentence() string {
	return l.closingSentence
}

// NextUtterance asks the model for the next line of the interview.
func (l *LLM) NextUtterance(ctx context.Context, id names.Identity, history []session.Turn) (string, error) {
	resp, err := l.provider.Chat(ctx, &inference.ChatRequest{
		Model:       l.model,
		Temperature: l.temperature,
		Messages: []inference.Message{
			inference.NewSystemMessage(Instructions(id, l.closingSentence)),
			inference.NewUserMessage(Transcript(id, history)),
		},
	})
	if err != nil {
		reason := ReasonProvider
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		l.logger.Warn("generation failed", "reason", reason, "error", err)
		return "", &GenerationError{Reason: reason, Err: err}
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", &GenerationError{Reason: ReasonEmpty}
	}
	l.logger.Debug("generated", "chars", len(text), "latency_ms", resp.LatencyMs)
	return text, nil
}

var _ Engine = (*LLM)(nil)
