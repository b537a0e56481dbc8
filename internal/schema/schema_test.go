package schema_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/duarte-pardal/discord-archiver/internal/schema"
	_ "modernc.org/sqlite"
)

func newRawDB(t *testing.T) (*sql.DB, error) {
	t.Helper()
	return sql.Open("sqlite", filepath.Join(t.TempDir(), "raw.db"))
}

func TestOpenDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := schema.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}

	version, err := schema.GetSchemaVersion(db)
	if err != nil {
		t.Fatalf("GetSchemaVersion() failed: %v", err)
	}
	if version != schema.CurrentVersion {
		t.Errorf("version = %d, want %d", version, schema.CurrentVersion)
	}
}

func TestInitDBCreatesExpectedTables(t *testing.T) {
	db, err := schema.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	want := []string{
		"latest_user_snapshots", "previous_user_snapshots",
		"latest_message_snapshots", "previous_message_snapshots",
		"member_snapshots", "attachments", "stickers",
		"reaction_emojis", "reactions", "webhook_users", "files",
		"message_fts_index",
	}
	for _, tbl := range want {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, tbl).Scan(&name)
		if err != nil {
			t.Errorf("table %q missing: %v", tbl, err)
		}
	}
}

func TestInitDBIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := schema.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := schema.InitDB(db); err != nil {
		t.Fatalf("second InitDB() should be a no-op, got error: %v", err)
	}
	version, err := schema.GetSchemaVersion(db)
	if err != nil {
		t.Fatalf("GetSchemaVersion: %v", err)
	}
	if version != schema.CurrentVersion {
		t.Errorf("version = %d after idempotent re-init, want %d", version, schema.CurrentVersion)
	}
}

func TestGetSchemaVersionNoSchema(t *testing.T) {
	db, err := newRawDB(t)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer func() { _ = db.Close() }()

	version, err := schema.GetSchemaVersion(db)
	if err != nil {
		t.Fatalf("GetSchemaVersion: %v", err)
	}
	if version != 0 {
		t.Errorf("version = %d on empty database, want 0", version)
	}
}
