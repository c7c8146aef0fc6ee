package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// callRecord is the database row for one call.
type callRecord struct {
	CallID        string `gorm:"primaryKey;size:128"`
	Caller        string `gorm:"size:64"`
	TurnIndex     int
	FirstName     string `gorm:"size:128"`
	PreferredName string `gorm:"size:128"`
	History       string `gorm:"type:text"`
	AwaitingReply bool
	Complete      bool `gorm:"index"`
	StartedAt     time.Time
	LastUpdated   time.Time `gorm:"index"`
}

func (callRecord) TableName() string {
	return "call_sessions"
}

// SQLStore implements Store on a gorm database.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) a sqlite database at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("session: sqlite store requires a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an open gorm database and migrates the schema.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&callRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate call_sessions: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Load reads the session row for callID.
func (q *SQLStore) Load(ctx context.Context, callID string) (*Session, bool, error) {
	var rec callRecord
	err := q.db.WithContext(ctx).Where("call_id = ?", callID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session %s: %w", callID, err)
	}

	s, err := rec.session()
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Save upserts the full session row.
func (q *SQLStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.CallID == "" {
		return ErrEmptyCallID
	}
	rec, err := newCallRecord(s)
	if err != nil {
		return err
	}

	err = q.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "call_id"}},
		UpdateAll: true,
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.CallID, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (q *SQLStore) Close() error {
	sqlDB, err := q.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newCallRecord(s *Session) (*callRecord, error) {
	history := s.History
	if history == nil {
		history = []Turn{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return &callRecord{
		CallID:        s.CallID,
		Caller:        s.Caller,
		TurnIndex:     s.TurnIndex,
		FirstName:     s.FirstName,
		PreferredName: s.PreferredName,
		History:       string(data),
		AwaitingReply: s.AwaitingReply,
		Complete:      s.Complete,
		StartedAt:     s.CreatedAt,
		LastUpdated:   s.LastUpdated,
	}, nil
}

func (r *callRecord) session() (*Session, error) {
	history := []Turn{}
	if r.History != "" {
		if err := json.Unmarshal([]byte(r.History), &history); err != nil {
			return nil, fmt.Errorf("failed to parse history for %s: %w", r.CallID, err)
		}
	}
	return &Session{
		CallID:        r.CallID,
		Caller:        r.Caller,
		TurnIndex:     r.TurnIndex,
		FirstName:     r.FirstName,
		PreferredName: r.PreferredName,
		History:       history,
		AwaitingReply: r.AwaitingReply,
		Complete:      r.Complete,
		CreatedAt:     r.StartedAt,
		LastUpdated:   r.LastUpdated,
	}, nil
}
