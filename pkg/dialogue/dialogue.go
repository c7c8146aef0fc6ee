// Package dialogue decides what the interviewer says next.
//
// Engine produces the next line from the caller's identity and the answers so
// far. Whether that line ends the call is decided by the caller of the engine
// using IsClosing.
package dialogue

import (
	"context"
	"strings"

	"github.com/teslashibe/go-callflow/pkg/names"
	"github.com/teslashibe/go-callflow/pkg/session"
)

// DefaultClosingSentence is spoken verbatim when the interview is over.
const DefaultClosingSentence = "Thank you, that's all I need today."

// Engine generates the next interviewer utterance.
//
// Failures are reported as *GenerationError.
type Engine interface {
	NextUtterance(ctx context.Context, id names.Identity, history []session.Turn) (string, error)
}

// Instructions builds the system prompt for an interview with id.
func Instructions(id names.Identity, closingSentence string) string {
	if closingSentence == "" {
		closingSentence = DefaultClosingSentence
	}
	var sb strings.Builder
	sb.WriteString("You are a friendly interviewer speaking with a caller on the phone.")
	if name := id.AddressName(); name != "" {
		sb.WriteString(" Address the caller by their first name, ")
		sb.WriteString(displayName(name))
		sb.WriteString(".")
	}
	sb.WriteString(" Ask exactly one question at a time and keep it short enough to be spoken aloud.")
	sb.WriteString(" Never mention that you are an AI or an automated system.")
	sb.WriteString(" When you have learned enough, say '")
	sb.WriteString(closingSentence)
	sb.WriteString("' word for word and nothing after it.")
	return sb.String()
}

// Transcript renders the answers so far, one line per turn, in order.
func Transcript(id names.Identity, history []session.Turn) string {
	label := displayName(id.FirstName)
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = turn.Speaker.Label(label) + ": " + turn.Text
	}
	return strings.Join(lines, "\n")
}

// ClosingPhrase derives the match phrase from a closing sentence: lowercased
// with trailing punctuation removed.
func ClosingPhrase(sentence string) string {
	phrase := strings.ToLower(strings.TrimSpace(sentence))
	return strings.TrimRight(phrase, ".!? ")
}

// IsClosing reports whether utterance contains phrase, ignoring case.
// Typographic apostrophes are treated as plain ones.
func IsClosing(utterance, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(fold(utterance), fold(phrase))
}

func fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "’", "'")
}

// displayName capitalizes a lowercased extracted name for the model.
func displayName(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
