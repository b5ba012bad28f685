package database

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edumentor/edumentor/internal/testutil"
)

func TestOpenCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("Ping() after Open: %v", err)
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("reading foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	var journal string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journal); err != nil {
		t.Fatalf("reading journal_mode pragma: %v", err)
	}
	if journal != "wal" {
		t.Errorf("journal_mode = %q, want wal", journal)
	}
}

func TestMigrateCreatesSchema(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if err := Migrate(db, testutil.DiscardLogger()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	for _, table := range []string{"chat_history", "quiz_results"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after Migrate: %v", table, err)
		}
	}
}

func TestMigrateLogsThroughInjectedLogger(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := Migrate(db, logger); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if !strings.Contains(buf.String(), "migrations completed") {
		t.Errorf("injected logger captured %q, want the completion entry", buf.String())
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if err := Migrate(db, testutil.DiscardLogger()); err != nil {
		t.Fatalf("first Migrate() error: %v", err)
	}
	if err := Migrate(db, testutil.DiscardLogger()); err != nil {
		t.Fatalf("second Migrate() should be a no-op, got: %v", err)
	}
}

func TestVecVersion(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	version, err := VecVersion(db)
	if err != nil {
		t.Fatalf("VecVersion() error: %v", err)
	}
	if version == "" {
		t.Error("VecVersion() returned empty string")
	}
}
