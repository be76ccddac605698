package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_CreatesFileAndSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "coach.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}

	schema := []struct {
		kind string
		name string
	}{
		{"table", "sessions"},
		{"table", "repetitions"},
		{"table", "settings"},
		{"index", "idx_repetitions_session_id"},
		{"index", "idx_sessions_created_at"},
	}
	for _, obj := range schema {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = ? AND name = ?", obj.kind, obj.name,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s %q not created: %v", obj.kind, obj.name, err)
		}
	}
}

func TestNew_EnablesForeignKeys(t *testing.T) {
	s := newTestStore(t)

	var on int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "dir", "coach.db")
	if s, err := New(dbPath); err == nil {
		s.Close()
		t.Fatal("expected error for a path in a missing directory")
	}
}

func TestStore_ClosedRejectsQueries(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "coach.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("expected query on a closed store to fail")
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "coach.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Sessions().Create(newTestSession("session-1")); err != nil {
		t.Fatalf("create session: %v", err)
	}
	s.Close()

	// Migrations run again on an existing file.
	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Sessions().GetByID("session-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "morning rehab" {
		t.Errorf("name = %q, want %q", got.Name, "morning rehab")
	}
}
