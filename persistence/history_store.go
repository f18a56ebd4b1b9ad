package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexcodex/promptforge/framework"
)

// ActivityTimeFormat is used when rendering activity entries.
const ActivityTimeFormat = "2006-01-02 15:04:05"

// ActivityEntry is one line of the activity log.
type ActivityEntry struct {
	ID        int64
	Message   string
	Timestamp time.Time
}

// String renders "[timestamp] message".
func (e ActivityEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Timestamp.Local().Format(ActivityTimeFormat), e.Message)
}

// HistoryStore keeps submitted prompts and the activity log.
type HistoryStore interface {
	AppendPrompt(ctx context.Context, prompt string) (bool, error)
	Prompts(ctx context.Context, limit int) ([]string, error)
	LogActivity(ctx context.Context, message string) error
	Activity(ctx context.Context, limit int) ([]ActivityEntry, error)
	ExportActivity(ctx context.Context, path string) error
	Close() error
}

// SQLiteHistoryStore persists history in a SQLite database.
type SQLiteHistoryStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteHistoryStore opens/creates the database at dbPath.
func NewSQLiteHistoryStore(dbPath string) (*SQLiteHistoryStore, error) {
	if dbPath == "" {
		return nil, errors.New("history store path required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under the telemetry sink.
	db.SetMaxOpenConns(1)
	store := &SQLiteHistoryStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteHistoryStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendPrompt records prompt unless it equals the most recent entry. It
// reports whether a row was written.
func (s *SQLiteHistoryStore) AppendPrompt(ctx context.Context, prompt string) (bool, error) {
	if prompt == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var last string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM prompts ORDER BY id DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return false, err
	case last == prompt:
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO prompts(text, created_at) VALUES(?, ?)`, prompt, s.now().UTC()); err != nil {
		return false, err
	}
	return true, nil
}

// Prompts returns up to limit prompts, oldest first. limit <= 0 returns all.
func (s *SQLiteHistoryStore) Prompts(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text FROM (SELECT id, text FROM prompts ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

// LogActivity appends a timestamped activity entry.
func (s *SQLiteHistoryStore) LogActivity(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO activity(message, created_at) VALUES(?, ?)`, message, s.now().UTC())
	return err
}

// Activity returns up to limit entries, oldest first.
func (s *SQLiteHistoryStore) Activity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, message, created_at FROM (SELECT id, message, created_at FROM activity ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActivityEntry
	for rows.Next() {
		var entry ActivityEntry
		if err := rows.Scan(&entry.ID, &entry.Message, &entry.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ExportActivity writes the whole activity log to path as plain text.
func (s *SQLiteHistoryStore) ExportActivity(ctx context.Context, path string) error {
	entries, err := s.Activity(ctx, 0)
	if err != nil {
		return err
	}
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(entry.String())
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// Close closes the database.
func (s *SQLiteHistoryStore) Close() error {
	return s.db.Close()
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// ActivityTelemetry records activity events in a HistoryStore.
type ActivityTelemetry struct {
	Store HistoryStore
}

// Emit stores EventActivity messages; other events are ignored.
func (a ActivityTelemetry) Emit(event framework.Event) {
	if a.Store == nil || event.Type != framework.EventActivity {
		return
	}
	_ = a.Store.LogActivity(context.Background(), event.Message)
}
