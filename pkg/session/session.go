// Package session holds per-call interview state and its persistence.
//
// A Session is keyed by the telephony provider's call identifier. All
// turn-to-turn state lives here; nothing is kept in process between webhooks.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Speaker labels a history entry.
type Speaker string

const (
	// SpeakerIntroduction labels the turn-0 answer (the caller's full name).
	SpeakerIntroduction Speaker = "introduction"

	// SpeakerSubject labels every later answer from the caller.
	SpeakerSubject Speaker = "subject"
)

// Label returns the prefix used when the entry is rendered as a transcript line.
func (s Speaker) Label(name string) string {
	if s == SpeakerIntroduction {
		return "Full name"
	}
	if name == "" {
		return "Caller"
	}
	return name
}

// Turn is one answered question.
type Turn struct {
	ID      string    `json:"id"`
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Session is one call's interview state.
type Session struct {
	CallID string `json:"call_id"`
	Caller string `json:"caller,omitempty"`

	// TurnIndex is the turn currently awaiting an answer.
	TurnIndex int `json:"turn_index"`

	FirstName     string `json:"first_name"`
	PreferredName string `json:"preferred_name,omitempty"`

	// History is append-only and chronological.
	History []Turn `json:"history"`

	// AwaitingReply is set once the answer for TurnIndex is saved and cleared
	// when the turn advances. While set, a retry regenerates the reply
	// without recording the answer again.
	AwaitingReply bool `json:"awaiting_reply,omitempty"`

	Complete bool `json:"complete"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// New creates an empty session for a call awaiting turn 0.
func New(callID string, now time.Time) *Session {
	return &Session{
		CallID:      callID,
		History:     []Turn{},
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Reset returns the session to the start of an interview: turn 0 pending,
// not complete, no history or names.
func (s *Session) Reset(caller string, now time.Time) {
	s.Caller = caller
	s.TurnIndex = 0
	s.FirstName = ""
	s.PreferredName = ""
	s.History = []Turn{}
	s.AwaitingReply = false
	s.Complete = false
	s.CreatedAt = now
	s.LastUpdated = now
}

// SetIdentity records the caller's names. The first name is only written
// while empty and the preferred name is set at most once.
func (s *Session) SetIdentity(first, preferred string, now time.Time) {
	if s.FirstName == "" {
		s.FirstName = first
	}
	if s.PreferredName == "" && preferred != "" {
		s.PreferredName = preferred
	}
	s.LastUpdated = now
}

// Append adds an answer to the history.
func (s *Session) Append(speaker Speaker, text string, now time.Time) Turn {
	turn := Turn{
		ID:      uuid.New().String(),
		Speaker: speaker,
		Text:    text,
		At:      now,
	}
	s.History = append(s.History, turn)
	s.LastUpdated = now
	return turn
}

// MarkAnswered records that the pending turn's answer is saved.
func (s *Session) MarkAnswered(now time.Time) {
	s.AwaitingReply = true
	s.LastUpdated = now
}

// ReplyPending reports whether turn was answered but has no reply yet.
func (s *Session) ReplyPending(turn int) bool {
	return s.AwaitingReply && turn == s.TurnIndex
}

// Advance moves the pending turn forward. It never moves backwards.
func (s *Session) Advance(next int, now time.Time) {
	if next > s.TurnIndex {
		s.TurnIndex = next
		s.AwaitingReply = false
	}
	s.LastUpdated = now
}

// MarkComplete ends the interview. Completion is permanent.
func (s *Session) MarkComplete(now time.Time) {
	s.Complete = true
	s.LastUpdated = now
}

// AddressName is the name the caller should be addressed by.
func (s *Session) AddressName() string {
	if s.PreferredName != "" {
		return s.PreferredName
	}
	return s.FirstName
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = make([]Turn, len(s.History))
	copy(c.History, s.History)
	return &c
}
