package stt

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds transcription provider configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// Language is an optional ISO-639-1 hint.
	Language string

	// FileName is sent as the upload name; its extension tells the provider
	// the audio format.
	FileName string

	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring a Transcriber.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithLanguage sets the language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithFileName sets the upload file name.
func WithFileName(name string) Option {
	return func(c *Config) { c.FileName = name }
}

// WithTimeout bounds a single transcription request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for OpenAI Whisper.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  "https://api.openai.com/v1",
		Model:    "whisper-1",
		FileName: "recording.mp3",
		Timeout:  30 * time.Second,
		Logger:   slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
