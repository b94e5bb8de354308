package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStorage implements BlobStore and TranscriptStore using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqlite(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	return newSqlite(db)
}

func newSqlite(db *sql.DB) (*SqliteStorage, error) {
	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS blobs (
			ref TEXT PRIMARY KEY,
			media_type TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL,
			turn_index INTEGER NOT NULL,
			task TEXT NOT NULL,
			decision TEXT NOT NULL,
			action TEXT NOT NULL,
			result TEXT NOT NULL,
			is_error INTEGER NOT NULL DEFAULT 0,
			screenshot_ref TEXT,
			tokens INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (session_id, turn_index)
		);

		CREATE INDEX IF NOT EXISTS idx_turns_created
		ON turns(created_at);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Put stores data under its content address. Existing blobs are kept.
func (s *SqliteStorage) Put(ctx context.Context, mediaType string, data []byte) (string, error) {
	ref := BlobRef(data)
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO blobs (ref, media_type, data, created_at) VALUES (?, ?, ?, ?)",
		ref, mediaType, data, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return ref, nil
}

// Get returns the blob stored under ref.
func (s *SqliteStorage) Get(ctx context.Context, ref string) (Blob, error) {
	var (
		b       Blob
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT ref, media_type, data, created_at FROM blobs WHERE ref = ?",
		ref).Scan(&b.Ref, &b.MediaType, &b.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, fmt.Errorf("blob %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return Blob{}, fmt.Errorf("failed to load blob: %w", err)
	}
	b.CreatedAt = time.UnixMilli(created)
	return b, nil
}

// RecordTurn inserts or replaces a turn.
func (s *SqliteStorage) RecordTurn(ctx context.Context, turn Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	// Convert empty strings to NULL for optional fields
	var screenshotRef interface{}
	if turn.ScreenshotRef != "" {
		screenshotRef = turn.ScreenshotRef
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO turns
		(session_id, turn_index, task, decision, action, result, is_error, screenshot_ref, tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.SessionID,
		turn.Index,
		turn.Task,
		turn.Decision,
		turn.Action,
		turn.Result,
		turn.IsError,
		screenshotRef,
		turn.Tokens,
		turn.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}

// LoadTurns returns the turns of a session in index order.
func (s *SqliteStorage) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, turn_index, task, decision, action, result, is_error, screenshot_ref, tokens, created_at
		FROM turns WHERE session_id = ? ORDER BY turn_index ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{} // Start with empty slice, not nil
	for rows.Next() {
		var (
			t       Turn
			ref     sql.NullString
			created int64
		)
		if err := rows.Scan(&t.SessionID, &t.Index, &t.Task, &t.Decision, &t.Action,
			&t.Result, &t.IsError, &ref, &t.Tokens, &created); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.ScreenshotRef = ref.String
		t.CreatedAt = time.UnixMilli(created)
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// ListSessions lists recorded sessions, most recent first.
func (s *SqliteStorage) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id,
		       (SELECT task FROM turns t2 WHERE t2.session_id = t.session_id ORDER BY turn_index LIMIT 1),
		       COUNT(*),
		       MIN(created_at)
		FROM turns t
		GROUP BY session_id
		ORDER BY MIN(created_at) DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var (
			summary SessionSummary
			started int64
		)
		if err := rows.Scan(&summary.SessionID, &summary.Task, &summary.Turns, &started); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		summary.StartedAt = time.UnixMilli(started)
		sessions = append(sessions, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// Verify SqliteStorage implements both stores
var (
	_ BlobStore       = (*SqliteStorage)(nil)
	_ TranscriptStore = (*SqliteStorage)(nil)
)
