// Package config loads go-callflow configuration.
//
// Values are resolved in order: built-in defaults, a .env file in the working
// directory, an optional YAML file, then process environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-callflow/pkg/recording"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Default service configuration.
const (
	DefaultPort               = 5000
	DefaultChatModel          = "gpt-3.5-turbo"
	DefaultTranscriptionModel = "whisper-1"
	DefaultOpenAIBaseURL      = "https://api.openai.com/v1"
	DefaultClosingSentence    = "Thank you, that's all I need today."
)

// Config is the full service configuration.
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// TurnTimeout bounds one webhook turn; keep it under the provider's deadline.
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// APIKey guards the call data API and the live feed. Empty disables both.
	APIKey string `yaml:"api_key"`

	OpenAI    OpenAIConfig    `yaml:"openai"`
	Store     StoreConfig     `yaml:"store"`
	Recording RecordingConfig `yaml:"recording"`
	Voice     VoiceConfig     `yaml:"voice"`
	Interview InterviewConfig `yaml:"interview"`
	Google    GoogleConfig    `yaml:"google"`
}

// OpenAIConfig configures the transcription and dialogue providers.
type OpenAIConfig struct {
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	ChatModel          string  `yaml:"chat_model"`
	FallbackChatModel  string  `yaml:"fallback_chat_model"`
	TranscriptionModel string  `yaml:"transcription_model"`
	Temperature        float64 `yaml:"temperature"`
}

// StoreConfig selects the call session store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// RecordingConfig configures recording retrieval.
type RecordingConfig struct {
	Suffix    string        `yaml:"suffix"`
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	Timeout   time.Duration `yaml:"timeout"`

	// Twilio credentials, used as basic auth when fetching recordings.
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
}

// Policy returns the retriever policy these settings describe.
func (r RecordingConfig) Policy() recording.Policy {
	return recording.Policy{
		Attempts:  r.Attempts,
		BaseDelay: r.BaseDelay,
		Timeout:   r.Timeout,
		Suffix:    r.Suffix,
	}
}

// VoiceConfig is passed through to the voice-response document.
type VoiceConfig struct {
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
	Rate     string `yaml:"rate"`
	Pitch    string `yaml:"pitch"`
	Volume   string `yaml:"volume"`
}

// InterviewConfig holds the conversation's fixed text.
type InterviewConfig struct {
	ClosingSentence string `yaml:"closing_sentence"`
}

// GoogleConfig enables transcript export to Google Docs.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	TokenPath    string `yaml:"token_path"`
}

// Enabled reports whether Google export credentials are configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:        DefaultPort,
		LogLevel:    "info",
		TurnTimeout: 14 * time.Second,
		OpenAI: OpenAIConfig{
			BaseURL:            DefaultOpenAIBaseURL,
			ChatModel:          DefaultChatModel,
			TranscriptionModel: DefaultTranscriptionModel,
			Temperature:        0.7,
		},
		Store: StoreConfig{
			Driver: StoreMemory,
		},
		Recording: RecordingConfig{
			Suffix:    recording.DefaultSuffix,
			Attempts:  recording.DefaultAttempts,
			BaseDelay: recording.DefaultBaseDelay,
			Timeout:   recording.DefaultTimeout,
		},
		Voice: VoiceConfig{
			Name:     "Polly.Joanna-Neural",
			Language: "en-US",
			Rate:     "medium",
			Pitch:    "default",
			Volume:   "default",
		},
		Interview: InterviewConfig{
			ClosingSentence: DefaultClosingSentence,
		},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path or a missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv() error {
	if err := envInt("PORT", &c.Port); err != nil {
		return err
	}
	envString("LOG_LEVEL", &c.LogLevel)
	if err := envDuration("TURN_TIMEOUT", &c.TurnTimeout); err != nil {
		return err
	}

	envString("CALLFLOW_API_KEY", &c.APIKey)

	envString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	envString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	envString("CHAT_MODEL", &c.OpenAI.ChatModel)
	envString("FALLBACK_CHAT_MODEL", &c.OpenAI.FallbackChatModel)
	envString("TRANSCRIPTION_MODEL", &c.OpenAI.TranscriptionModel)

	envString("STORE_DRIVER", &c.Store.Driver)
	envString("STORE_PATH", &c.Store.Path)

	envString("RECORDING_SUFFIX", &c.Recording.Suffix)
	if err := envInt("RECORDING_ATTEMPTS", &c.Recording.Attempts); err != nil {
		return err
	}
	if err := envDuration("RECORDING_BASE_DELAY", &c.Recording.BaseDelay); err != nil {
		return err
	}
	if err := envDuration("RECORDING_TIMEOUT", &c.Recording.Timeout); err != nil {
		return err
	}
	envString("TWILIO_ACCOUNT_SID", &c.Recording.AccountSID)
	envString("TWILIO_AUTH_TOKEN", &c.Recording.AuthToken)

	envString("TTS_VOICE", &c.Voice.Name)
	envString("TTS_LANGUAGE", &c.Voice.Language)
	envString("TTS_RATE", &c.Voice.Rate)
	envString("TTS_PITCH", &c.Voice.Pitch)
	envString("TTS_VOLUME", &c.Voice.Volume)

	envString("CLOSING_SENTENCE", &c.Interview.ClosingSentence)

	envString("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	envString("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	envString("GOOGLE_REDIRECT_URL", &c.Google.RedirectURL)
	envString("GOOGLE_TOKEN_PATH", &c.Google.TokenPath)
	return nil
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("config: OPENAI_API_KEY is required")
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreJSON, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("config: store driver %q requires a path", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Recording.Attempts < 1 {
		return fmt.Errorf("config: recording attempts must be >= 1, got %d", c.Recording.Attempts)
	}
	if budget := c.Recording.Policy().Budget(); budget >= c.TurnTimeout {
		return fmt.Errorf("config: recording retries can take %v, not under turn timeout %v", budget, c.TurnTimeout)
	}
	if strings.TrimSpace(c.Interview.ClosingSentence) == "" {
		return errors.New("config: closing sentence is required")
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

// envDuration accepts Go durations ("2s") or bare seconds ("2").
func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
