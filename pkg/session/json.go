package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// JSONStore implements Store with one JSON file per call.
type JSONStore struct {
	dir string
	mu  sync.RWMutex
}

// fileData is the on-disk layout of one call.
type fileData struct {
	Version int      `json:"version"`
	Session *Session `json:"session"`
}

const currentVersion = 1

// safeID matches call ids usable verbatim as file names (Twilio SIDs are).
var safeID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// NewJSONStore creates a store rooted at dir, creating it if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		return nil, errors.New("session: json store requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

// Dir returns the store directory.
func (j *JSONStore) Dir() string {
	return j.dir
}

// path maps a call id to its file. Ids that are not plain tokens are hashed
// so they can never escape the store directory.
func (j *JSONStore) path(callID string) string {
	name := callID
	if !safeID.MatchString(callID) {
		sum := sha256.Sum256([]byte(callID))
		name = "h-" + hex.EncodeToString(sum[:])
	}
	return filepath.Join(j.dir, name+".json")
}

// Load reads the session for callID from disk.
func (j *JSONStore) Load(ctx context.Context, callID string) (*Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	data, err := os.ReadFile(j.path(callID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session: %w", err)
	}

	var stored fileData
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to parse session: %w", err)
	}
	if stored.Session == nil {
		return nil, false, fmt.Errorf("session file for %s is empty", callID)
	}
	if stored.Session.History == nil {
		stored.Session.History = []Turn{}
	}
	return stored.Session, true, nil
}

// Save writes the session, replacing any previous file atomically.
func (j *JSONStore) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.CallID == "" {
		return ErrEmptyCallID
	}

	data, err := json.MarshalIndent(fileData{Version: currentVersion, Session: s}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	path := j.path(s.CallID)

	// Write to temp file first, then rename (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (j *JSONStore) Close() error {
	return nil
}
