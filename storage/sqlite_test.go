package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSqliteStoragePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vlmpilot.db")
	ctx := context.Background()

	storage, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	ref, err := storage.Put(ctx, "image/png", []byte("frame"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := storage.RecordTurn(ctx, Turn{SessionID: "s", Index: 0, Task: "t", ScreenshotRef: ref, Tokens: 42}); err != nil {
		t.Fatalf("RecordTurn failed: %v", err)
	}
	storage.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	blob, err := reopened.Get(ctx, ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(blob.Data) != "frame" {
		t.Errorf("expected 'frame', got %q", blob.Data)
	}

	turns, err := reopened.LoadTurns(ctx, "s")
	if err != nil {
		t.Fatalf("LoadTurns failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Tokens != 42 || turns[0].ScreenshotRef != ref {
		t.Errorf("unexpected turns: %+v", turns)
	}
}

func TestSqliteStorageCreatedAtRoundTrip(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	if err := storage.RecordTurn(ctx, Turn{SessionID: "s", Index: 0}); err != nil {
		t.Fatalf("RecordTurn failed: %v", err)
	}
	turns, err := storage.LoadTurns(ctx, "s")
	if err != nil {
		t.Fatalf("LoadTurns failed: %v", err)
	}
	if turns[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}
