package callflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyedMutexSerializesKey(t *testing.T) {
	k := newKeyedMutex()
	ctx := context.Background()

	release, err := k.Lock(ctx, "CA1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := k.Lock(ctx, "CA1")
		if err != nil {
			t.Errorf("second Lock: %v", err)
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired while first held the key")
	case <-time.After(20 * time.Millisecond):
	}

	// other keys never contend
	other, err := k.Lock(ctx, "CA2")
	if err != nil {
		t.Fatalf("Lock other key: %v", err)
	}
	other()

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired after release")
	}
}

func TestKeyedMutexWaiterGivesUp(t *testing.T) {
	k := newKeyedMutex()
	release, _ := k.Lock(context.Background(), "CA1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(ctx, "CA1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock error = %v, want DeadlineExceeded", err)
	}
	if k.Len() != 1 {
		t.Errorf("abandoned wait left %d entries, want 1", k.Len())
	}

	release()
	if k.Len() != 0 {
		t.Errorf("lock table not drained: %d", k.Len())
	}
}
