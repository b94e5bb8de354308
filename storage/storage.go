// Package storage provides screenshot and transcript storage.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interfaces
// - Allows swapping between memory and SQLite without API changes
// - Transcripts are an audit trail only; a session is never rebuilt from them

package storage

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrNotFound is returned when a blob reference is unknown.
var ErrNotFound = errors.New("not found")

// RefPrefix marks content-addressed blob references.
const RefPrefix = "xxh64:"

// Blob is stored image data.
type Blob struct {
	Ref       string
	MediaType string
	Data      []byte
	CreatedAt time.Time
}

// BlobStore keeps screenshots by content address. Storing identical bytes
// twice yields the same reference and one copy.
type BlobStore interface {
	// Put stores data and returns its reference.
	Put(ctx context.Context, mediaType string, data []byte) (string, error)

	// Get returns the blob for ref, or ErrNotFound.
	Get(ctx context.Context, ref string) (Blob, error)
}

// Turn is one recorded step of a session.
type Turn struct {
	SessionID     string
	Index         int
	Task          string
	Decision      string // raw planner JSON, empty in direct mode
	Action        string // raw actor output
	Result        string // rendered tool result text
	IsError       bool
	ScreenshotRef string
	Tokens        int
	CreatedAt     time.Time
}

// SessionSummary describes a recorded session.
type SessionSummary struct {
	SessionID string
	Task      string
	Turns     int
	StartedAt time.Time
}

// TranscriptStore records session turns for audit.
type TranscriptStore interface {
	// RecordTurn appends a turn. Recording the same (session, index) twice
	// replaces the earlier entry.
	RecordTurn(ctx context.Context, turn Turn) error

	// LoadTurns returns the turns of a session in index order.
	// Returns empty slice (not nil) if the session doesn't exist.
	LoadTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// ListSessions lists recorded sessions, most recent first.
	ListSessions(ctx context.Context) ([]SessionSummary, error)
}

// BlobRef returns the content address of data.
func BlobRef(data []byte) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64(data))
	return RefPrefix + hex.EncodeToString(buf[:])
}
