package session

import (
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New("CA123", now)

	if s.CallID != "CA123" {
		t.Errorf("CallID = %q", s.CallID)
	}
	if s.TurnIndex != 0 || s.Complete {
		t.Errorf("new session should await turn 0, got turn=%d complete=%v", s.TurnIndex, s.Complete)
	}
	if s.History == nil || len(s.History) != 0 {
		t.Errorf("History should be empty, non-nil")
	}
	if !s.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", s.LastUpdated, now)
	}
}

func TestReset(t *testing.T) {
	start := time.Now()
	s := New("CA1", start)
	s.SetIdentity("alice", "ally", start)
	s.Append(SpeakerIntroduction, "Alice Smith", start)
	s.Advance(3, start)
	s.MarkComplete(start)

	later := start.Add(time.Minute)
	s.Reset("+15550001111", later)

	if s.TurnIndex != 0 || s.Complete {
		t.Errorf("Reset: turn=%d complete=%v", s.TurnIndex, s.Complete)
	}
	if s.FirstName != "" || s.PreferredName != "" {
		t.Errorf("Reset should clear names, got %q/%q", s.FirstName, s.PreferredName)
	}
	if len(s.History) != 0 {
		t.Errorf("Reset should clear history, got %d", len(s.History))
	}
	if s.Caller != "+15550001111" {
		t.Errorf("Caller = %q", s.Caller)
	}
	if !s.LastUpdated.Equal(later) {
		t.Error("Reset should touch LastUpdated")
	}
}

func TestSetIdentitySetOnce(t *testing.T) {
	now := time.Now()
	s := New("CA1", now)

	s.SetIdentity("bob", "bobby", now)
	s.SetIdentity("robert", "rob", now)

	if s.FirstName != "bob" {
		t.Errorf("FirstName = %q, want bob", s.FirstName)
	}
	if s.PreferredName != "bobby" {
		t.Errorf("PreferredName = %q, want bobby", s.PreferredName)
	}
	if s.AddressName() != "bobby" {
		t.Errorf("AddressName = %q, want bobby", s.AddressName())
	}
}

func TestPreferredNameLateSet(t *testing.T) {
	now := time.Now()
	s := New("CA1", now)

	s.SetIdentity("carol", "", now)
	if s.AddressName() != "carol" {
		t.Errorf("AddressName = %q, want carol", s.AddressName())
	}
	s.SetIdentity("carol", "caz", now)
	if s.PreferredName != "caz" {
		t.Errorf("unset preferred name should accept first value, got %q", s.PreferredName)
	}
}

func TestAdvanceNeverDecrements(t *testing.T) {
	now := time.Now()
	s := New("CA1", now)

	s.Advance(2, now)
	s.Advance(1, now)
	if s.TurnIndex != 2 {
		t.Errorf("TurnIndex = %d, want 2", s.TurnIndex)
	}
}

func TestAppendOrderAndIDs(t *testing.T) {
	now := time.Now()
	s := New("CA1", now)

	a := s.Append(SpeakerIntroduction, "Dana Scully", now)
	b := s.Append(SpeakerSubject, "I like boats", now.Add(time.Second))

	if len(s.History) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(s.History))
	}
	if s.History[0].Text != "Dana Scully" || s.History[1].Text != "I like boats" {
		t.Errorf("history out of order: %+v", s.History)
	}
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("turn ids should be unique and non-empty: %q %q", a.ID, b.ID)
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := New("CA1", now)
	s.Append(SpeakerSubject, "one", now)

	c := s.Clone()
	c.Append(SpeakerSubject, "two", now)
	c.History[0].Text = "changed"

	if len(s.History) != 1 || s.History[0].Text != "one" {
		t.Errorf("clone aliased original history: %+v", s.History)
	}
}

func TestSpeakerLabel(t *testing.T) {
	if got := SpeakerIntroduction.Label("alice"); got != "Full name" {
		t.Errorf("introduction label = %q", got)
	}
	if got := SpeakerSubject.Label("alice"); got != "alice" {
		t.Errorf("subject label = %q", got)
	}
	if got := SpeakerSubject.Label(""); got != "Caller" {
		t.Errorf("subject label without name = %q", got)
	}
}

func TestReplyPendingUntilAdvance(t *testing.T) {
	now := time.Now()
	s := New("CA1", now)

	if s.ReplyPending(0) {
		t.Fatal("fresh session has no pending reply")
	}
	s.Append(SpeakerIntroduction, "Alice", now)
	s.MarkAnswered(now)
	if !s.ReplyPending(0) || s.ReplyPending(1) {
		t.Errorf("pending reply should be for turn 0 only")
	}

	s.Advance(1, now)
	if s.AwaitingReply || s.ReplyPending(1) {
		t.Error("advancing should clear the pending reply")
	}

	s.MarkAnswered(now)
	s.Reset("", now)
	if s.AwaitingReply {
		t.Error("Reset should clear the pending reply")
	}
}
