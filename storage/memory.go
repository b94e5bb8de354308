package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryStorage implements BlobStore and TranscriptStore using maps.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu       sync.RWMutex
	blobs    map[string]Blob
	sessions map[string][]Turn
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		blobs:    make(map[string]Blob),
		sessions: make(map[string][]Turn),
	}
}

// Put stores data under its content address.
func (s *InMemoryStorage) Put(ctx context.Context, mediaType string, data []byte) (string, error) {
	ref := BlobRef(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[ref]; !ok {
		s.blobs[ref] = Blob{
			Ref:       ref,
			MediaType: mediaType,
			Data:      append([]byte(nil), data...),
			CreatedAt: time.Now(),
		}
	}
	return ref, nil
}

// Get returns a copy of the blob stored under ref.
func (s *InMemoryStorage) Get(ctx context.Context, ref string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[ref]
	if !ok {
		return Blob{}, fmt.Errorf("blob %s: %w", ref, ErrNotFound)
	}
	b.Data = append([]byte(nil), b.Data...)
	return b, nil
}

// RecordTurn appends or replaces a turn.
func (s *InMemoryStorage) RecordTurn(ctx context.Context, turn Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[turn.SessionID]
	for i := range turns {
		if turns[i].Index == turn.Index {
			turns[i] = turn
			return nil
		}
	}
	turns = append(turns, turn)
	sort.Slice(turns, func(i, j int) bool { return turns[i].Index < turns[j].Index })
	s.sessions[turn.SessionID] = turns
	return nil
}

// LoadTurns returns a copy of the session's turns.
func (s *InMemoryStorage) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	copied := make([]Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// ListSessions lists recorded sessions, most recent first.
func (s *InMemoryStorage) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]SessionSummary, 0, len(s.sessions))
	for id, turns := range s.sessions {
		if len(turns) == 0 {
			continue
		}
		sessions = append(sessions, SessionSummary{
			SessionID: id,
			Task:      turns[0].Task,
			Turns:     len(turns),
			StartedAt: turns[0].CreatedAt,
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

// Verify InMemoryStorage implements both stores
var (
	_ BlobStore       = (*InMemoryStorage)(nil)
	_ TranscriptStore = (*InMemoryStorage)(nil)
)
