package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-callflow/pkg/inference"
	"github.com/teslashibe/go-callflow/pkg/names"
	"github.com/teslashibe/go-callflow/pkg/session"
)

func history() []session.Turn {
	now := time.Now()
	s := session.New("CA1", now)
	s.Append(session.SpeakerIntroduction, "I'm Bob but call me Bobby", now)
	s.Append(session.SpeakerSubject, "I drive trucks", now)
	return s.History
}

func TestInstructionsUsesPreferredName(t *testing.T) {
	got := Instructions(names.Identity{FirstName: "bob", PreferredName: "bobby"}, "")
	if !strings.Contains(got, "Bobby") {
		t.Errorf("instructions should address the preferred name: %q", got)
	}
	if !strings.Contains(got, "one question") {
		t.Errorf("instructions should ask one question per turn: %q", got)
	}
	if !strings.Contains(got, DefaultClosingSentence) {
		t.Errorf("instructions should carry the closing sentence: %q", got)
	}
}

func TestInstructionsFallsBackToFirstName(t *testing.T) {
	got := Instructions(names.Identity{FirstName: "alice"}, "Goodbye now.")
	if !strings.Contains(got, "Alice") || !strings.Contains(got, "'Goodbye now.'") {
		t.Errorf("unexpected instructions: %q", got)
	}
}

func TestTranscript(t *testing.T) {
	got := Transcript(names.Identity{FirstName: "bob"}, history())
	want := "Full name: I'm Bob but call me Bobby\nBob: I drive trucks"
	if got != want {
		t.Errorf("Transcript = %q, want %q", got, want)
	}
}

func TestIsClosing(t *testing.T) {
	phrase := ClosingPhrase(DefaultClosingSentence)
	if phrase != "thank you, that's all i need today" {
		t.Fatalf("ClosingPhrase = %q", phrase)
	}

	tests := []struct {
		utterance string
		want      bool
	}{
		{"Thank you, that's all I need today.", true},
		{"Great talking, Bob. THANK YOU, THAT'S ALL I NEED TODAY!", true},
		{"Thank you, that’s all I need today.", true},
		{"Thanks, that is all I need today.", false},
		{"What do you do for fun?", false},
	}
	for _, tt := range tests {
		if got := IsClosing(tt.utterance, phrase); got != tt.want {
			t.Errorf("IsClosing(%q) = %v, want %v", tt.utterance, got, tt.want)
		}
	}
	if IsClosing("anything", "") {
		t.Error("empty phrase must never match")
	}
}

func TestLLMNextUtterance(t *testing.T) {
	provider := inference.NewMock("  What do you enjoy about driving?  ")
	engine, err := NewLLM(provider)
	if err != nil {
		t.Fatalf("NewLLM: %v", err)
	}

	got, err := engine.NextUtterance(context.Background(), names.Identity{FirstName: "bob"}, history())
	if err != nil {
		t.Fatalf("NextUtterance: %v", err)
	}
	if got != "What do you enjoy about driving?" {
		t.Errorf("utterance = %q", got)
	}

	req := provider.LastRequest()
	if req == nil || len(req.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %+v", req)
	}
	if req.Messages[0].Role != inference.RoleSystem || req.Messages[1].Role != inference.RoleUser {
		t.Errorf("roles = %s, %s", req.Messages[0].Role, req.Messages[1].Role)
	}
	if req.Temperature != 0.7 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if !strings.HasPrefix(req.Messages[1].Content, "Full name: ") {
		t.Errorf("user message = %q", req.Messages[1].Content)
	}
}

func TestLLMProviderFailure(t *testing.T) {
	engine, _ := NewLLM(inference.WithError(context.DeadlineExceeded))

	_, err := engine.NextUtterance(context.Background(), names.Identity{FirstName: "bob"}, history())

	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if ge.Reason != ReasonTimeout {
		t.Errorf("Reason = %q, want timeout", ge.Reason)
	}
}

func TestLLMEmptyOutput(t *testing.T) {
	engine, _ := NewLLM(inference.NewMock("   "))
	_, err := engine.NextUtterance(context.Background(), names.Identity{}, nil)
	if !IsGenerationError(err) {
		t.Errorf("expected GenerationError, got %v", err)
	}
}

func TestNewLLMRequiresProvider(t *testing.T) {
	if _, err := NewLLM(nil); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestMockSequence(t *testing.T) {
	m := NewMock("first", "second")
	ctx := context.Background()
	for _, want := range []string{"first", "second", "second"} {
		got, err := m.NextUtterance(ctx, names.Identity{}, nil)
		if err != nil || got != want {
			t.Errorf("got %q, %v; want %q", got, err, want)
		}
	}
	if m.Calls() != 3 {
		t.Errorf("Calls = %d", m.Calls())
	}
}
