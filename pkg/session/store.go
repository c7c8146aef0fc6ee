package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for the session package.
var (
	// ErrEmptyCallID indicates a session without a call identifier.
	ErrEmptyCallID = errors.New("session: call id is required")

	// ErrUnknownDriver indicates an unsupported store driver name.
	ErrUnknownDriver = errors.New("session: unknown store driver")
)

// Store persists sessions keyed by call identifier.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the session for callID. An unknown id is reported as
	// ok=false with a nil error.
	Load(ctx context.Context, callID string) (s *Session, ok bool, err error)

	// Save overwrites the full session keyed by its CallID.
	Save(ctx context.Context, s *Session) error

	// Close releases any resources held by the store.
	Close() error
}

// Open creates a store for the named driver: "memory", "json" or "sqlite".
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "json":
		return NewJSONStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(ctx context.Context, callID string) (*Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[callID]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

// Save stores a copy of the session.
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.CallID == "" {
		return ErrEmptyCallID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.CallID] = s.Clone()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Verify implementations satisfy Store at compile time.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*JSONStore)(nil)
	_ Store = (*SQLStore)(nil)
)
