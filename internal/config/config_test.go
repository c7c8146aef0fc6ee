package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Recording.Attempts != 3 {
		t.Errorf("Recording.Attempts = %d, want 3", cfg.Recording.Attempts)
	}
	if cfg.Recording.Suffix != ".mp3" {
		t.Errorf("Recording.Suffix = %q, want .mp3", cfg.Recording.Suffix)
	}
	if cfg.Voice.Name != "Polly.Joanna-Neural" {
		t.Errorf("Voice.Name = %q", cfg.Voice.Name)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "callflow.yaml")
	yamlData := `port: 9090
openai:
  chat_model: gpt-4o-mini
store:
  driver: json
  path: /tmp/calls
recording:
  attempts: 4
  base_delay: 250ms
voice:
  name: Polly.Matthew
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RECORDING_TIMEOUT", "2")
	t.Setenv("CALLFLOW_API_KEY", "dash")
	t.Setenv("TTS_LANGUAGE", "en-GB")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %q", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.TranscriptionModel != DefaultTranscriptionModel {
		t.Errorf("TranscriptionModel = %q, want default", cfg.OpenAI.TranscriptionModel)
	}
	if cfg.Store.Driver != StoreJSON || cfg.Store.Path != "/tmp/calls" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Recording.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", cfg.Recording.Attempts)
	}
	if cfg.Recording.BaseDelay != 250*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 250ms", cfg.Recording.BaseDelay)
	}
	if cfg.Recording.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Recording.Timeout)
	}
	if cfg.Voice.Name != "Polly.Matthew" || cfg.Voice.Language != "en-GB" {
		t.Errorf("Voice = %+v", cfg.Voice)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("APIKey not taken from env")
	}
	if cfg.APIKey != "dash" {
		t.Errorf("dashboard APIKey = %q, want dash", cfg.APIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Port == 0 {
		t.Error("expected defaults")
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	if _, err := Load(""); err == nil {
		t.Error("expected error for malformed PORT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing key", func(c *Config) { c.OpenAI.APIKey = "" }, true},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"json without path", func(c *Config) { c.Store.Driver = StoreJSON }, true},
		{"sqlite with path", func(c *Config) { c.Store.Driver = StoreSQLite; c.Store.Path = "calls.db" }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, true},
		{"zero attempts", func(c *Config) { c.Recording.Attempts = 0 }, true},
		{"blank closing", func(c *Config) { c.Interview.ClosingSentence = "  " }, true},
		{"retries outlast turn", func(c *Config) { c.Recording.BaseDelay = 2 * time.Second; c.Recording.Timeout = 10 * time.Second }, true},
		{"short turn timeout", func(c *Config) { c.TurnTimeout = 5 * time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.OpenAI.APIKey = "sk-test"
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultRetrievalFitsTurnTimeout(t *testing.T) {
	cfg := Default()
	budget := cfg.Recording.Policy().Budget()
	if budget >= cfg.TurnTimeout {
		t.Fatalf("default retrieval budget %v does not fit turn timeout %v", budget, cfg.TurnTimeout)
	}
	// leave room for transcription and generation
	if cfg.TurnTimeout-budget < 3*time.Second {
		t.Errorf("only %v left after retrieval", cfg.TurnTimeout-budget)
	}
}
