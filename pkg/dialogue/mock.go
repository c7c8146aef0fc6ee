package dialogue

import (
	"context"
	"sync"

	"github.com/teslashibe/go-callflow/pkg/names"
	"github.com/teslashibe/go-callflow/pkg/session"
)

// Mock implements Engine for testing.
type Mock struct {
	// NextFunc is called when NextUtterance is invoked.
	NextFunc func(ctx context.Context, id names.Identity, history []session.Turn) (string, error)

	mu         sync.Mutex
	calls      int
	identities []names.Identity
}

// NewMock returns a mock that replies with the given lines in order, then
// repeats the last one.
func NewMock(lines ...string) *Mock {
	m := &Mock{}
	m.NextFunc = func(ctx context.Context, id names.Identity, history []session.Turn) (string, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if len(lines) == 0 {
			return "", &GenerationError{Reason: ReasonEmpty}
		}
		i := m.calls - 1
		if i >= len(lines) {
			i = len(lines) - 1
		}
		return lines[i], nil
	}
	return m
}

// NextUtterance calls NextFunc and records the call.
func (m *Mock) NextUtterance(ctx context.Context, id names.Identity, history []session.Turn) (string, error) {
	m.mu.Lock()
	m.calls++
	m.identities = append(m.identities, id)
	m.mu.Unlock()
	if m.NextFunc != nil {
		return m.NextFunc(ctx, id, history)
	}
	return "", &GenerationError{Reason: ReasonProvider}
}

// Calls returns how many times NextUtterance was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastIdentity returns the identity passed to the most recent call.
func (m *Mock) LastIdentity() names.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.identities) == 0 {
		return names.Identity{}
	}
	return m.identities[len(m.identities)-1]
}

var _ Engine = (*Mock)(nil)
