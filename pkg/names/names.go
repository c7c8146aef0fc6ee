// Package names pulls a caller's first name, and an optional preferred
// name, out of a free-form spoken introduction.
package names

import (
	"strings"
	"unicode"
)

// Fallback is the first name used when the introduction is empty.
const Fallback = "there"

// Identity is who the caller said they are.
type Identity struct {
	FirstName     string
	PreferredName string
}

// AddressName is the name to use when speaking to the caller.
func (id Identity) AddressName() string {
	if id.PreferredName != "" {
		return id.PreferredName
	}
	return id.FirstName
}

// pattern is one introduction phrase. skip is how many tokens after the
// phrase are passed over before the name.
type pattern struct {
	phrase string
	skip   int
}

// patterns is scanned in order and the first phrase present in the
// transcript wins, even when a later phrase occurs earlier in the text.
// Phrases that contain other phrases ("i am called" vs "i am") are listed
// first so the more specific one wins.
var patterns = []pattern{
	{"my name is", 0},
	{"my name's", 0},
	{"the name is", 0},
	{"i prefer to be called", 0},
	{"i go by", 0},
	{"i am called", 0},
	{"i'm called", 0},
	{"i'm", 0},
	{"i am", 0},
	{"this is", 0},
	{"it's", 0},
	{"you can call me", 0},
	{"name is", 0},
}

// preferenceMarkers introduce a preferred name inside the remainder.
var preferenceMarkers = map[string]bool{
	"but":     true,
	"however": true,
}

// fillers are skipped between a preference marker and the preferred name.
var fillers = map[string]bool{
	"call": true, "me": true, "please": true, "just": true, "you": true,
	"can": true, "i": true, "go": true, "by": true, "prefer": true,
	"to": true, "be": true, "called": true, "it's": true, "its": true,
	"rather": true, "would": true, "i'd": true, "like": true, "everyone": true,
	"calls": true, "my": true, "friends": true,
}

// Patterns returns the phrase table in precedence order.
func Patterns() []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.phrase
	}
	return out
}

// Extract parses an introduction. It is pure and deterministic.
func Extract(transcript string) Identity {
	text := normalize(transcript)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Identity{FirstName: Fallback}
	}

	for _, p := range patterns {
		i := strings.Index(text, p.phrase)
		if i < 0 {
			continue
		}
		rest := tokenize(text[i+len(p.phrase):])
		if len(rest) <= p.skip {
			break
		}
		rest = rest[p.skip:]
		return Identity{
			FirstName:     rest[0],
			PreferredName: preferred(rest[1:]),
		}
	}

	return Identity{
		FirstName:     tokens[0],
		PreferredName: preferred(tokens[1:]),
	}
}

// preferred returns the name following "but" or "however", skipping filler.
func preferred(tokens []string) string {
	for i, tok := range tokens {
		if !preferenceMarkers[tok] {
			continue
		}
		for _, next := range tokens[i+1:] {
			if fillers[next] {
				continue
			}
			return next
		}
		return ""
	}
	return ""
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// tokenize splits on whitespace and trims punctuation around each word,
// dropping tokens that were only punctuation.
func tokenize(s string) []string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
