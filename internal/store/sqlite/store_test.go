package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify tables exist.
	for _, table := range []string{"catalog_entries", "library_books", "rec_history"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	// The schema is idempotent.
	s2, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	whole := formatTime(base)
	frac := formatTime(base.Add(100 * time.Millisecond))
	if !(whole < frac) {
		t.Errorf("expected %q < %q", whole, frac)
	}

	parsed, err := parseTime(frac)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(base.Add(100 * time.Millisecond)) {
		t.Errorf("round trip mismatch: %v", parsed)
	}
}
