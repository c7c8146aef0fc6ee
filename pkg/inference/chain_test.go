package inference

import (
	"context"
	"errors"
	"testing"
)

func TestChainFallback(t *testing.T) {
	primary := WithError(errors.New("primary down"))
	backup := NewMock("from backup")

	chain, err := NewChain(primary, backup)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	resp, err := chain.Chat(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "from backup" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if primary.CallCount("Chat") != 1 || backup.CallCount("Chat") != 1 {
		t.Errorf("calls primary=%d backup=%d", primary.CallCount("Chat"), backup.CallCount("Chat"))
	}
}

func TestChainAllFail(t *testing.T) {
	last := errors.New("second down")
	chain, _ := NewChain(WithError(errors.New("first down")), WithError(last))

	_, err := chain.Chat(context.Background(), &ChatRequest{})

	var ce *ChainError
	if !errors.As(err, &ce) || len(ce.Errors) != 2 {
		t.Fatalf("expected ChainError with 2 errors, got %v", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("chain error should unwrap to the last failure")
	}
}

func TestChainHealth(t *testing.T) {
	chain, _ := NewChain(WithError(errors.New("down")), NewMock("ok"))
	if err := chain.Health(context.Background()); err != nil {
		t.Errorf("one healthy provider should pass: %v", err)
	}

	chain, _ = NewChain(WithError(errors.New("down")))
	if err := chain.Health(context.Background()); err == nil {
		t.Error("expected error when all providers unhealthy")
	}
}

func TestNewChainEmpty(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}
