package stt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-callflow/internal/httpc"
)

// Whisper transcribes through an OpenAI-compatible audio API.
type Whisper struct {
	client *openai.Client
	config *Config
	pool   *BufferPool
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With("component", "stt", "provider", "whisper")

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = httpc.NewClient(0)
	}

	return &Whisper{
		client: openai.NewClientWithConfig(oc),
		config: cfg,
		pool:   &BufferPool{},
	}, nil
}

// Pool exposes the transient buffer pool.
func (w *Whisper) Pool() *BufferPool {
	return w.pool
}

// Transcribe uploads audio and returns the recognized text.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &TranscriptionError{Provider: "whisper", Reason: ReasonEmptyAudio}
	}

	buf := w.pool.Acquire()
	defer w.pool.Release(buf)
	buf.Write(audio)

	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.config.Model,
		FilePath: w.config.FileName,
		Reader:   bytes.NewReader(buf.B),
		Language: w.config.Language,
	})
	if err != nil {
		w.config.Logger.Warn("transcription failed", "error", err, "bytes", len(audio))
		return "", classify(ctx, err)
	}

	text := strings.TrimSpace(resp.Text)
	w.config.Logger.Debug("transcribed",
		"bytes", len(audio),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func classify(ctx context.Context, err error) *TranscriptionError {
	te := &TranscriptionError{Provider: "whisper", Reason: ReasonProvider, Err: err}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		te.Reason = ReasonTimeout
		return te
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusBadRequest {
		te.Reason = ReasonUnsupported
	}
	return te
}

var _ Transcriber = (*Whisper)(nil)
