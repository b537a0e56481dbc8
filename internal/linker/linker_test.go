package linker_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/duarte-pardal/discord-archiver/internal/filestore"
	"github.com/duarte-pardal/discord-archiver/internal/linker"
	"github.com/duarte-pardal/discord-archiver/internal/schema"
)

// seedBlob commits pending content directly against url, bypassing the
// download coordinator since these tests only care about Link's own
// behavior.
func seedBlob(t *testing.T, ctx context.Context, db *sql.DB, store *filestore.Store, url string, content []byte) string {
	t.Helper()
	f, err := store.CreatePending()
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if _, err := f.Write(content); err != nil {
		t.Fatalf("write pending: %v", err)
	}
	pendingPath := f.Name()
	if err := f.Close(); err != nil {
		t.Fatalf("close pending: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	hash, _, err := store.Commit(ctx, tx, pendingPath, url)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("tx.Commit: %v", err)
	}
	return hash
}

func setup(t *testing.T) (*sql.DB, *filestore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := schema.OpenDB(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := filestore.Open(context.Background(), filepath.Join(dir, "blobs"), db, nil)
	if err != nil {
		t.Fatalf("filestore.Open: %v", err)
	}
	return db, store, filepath.Join(dir, "links")
}

func TestLinkAttachmentUsesFilename(t *testing.T) {
	ctx := context.Background()
	db, store, outDir := setup(t)

	const url = "https://cdn.discordapp.com/attachments/1/2/vacation.png"
	hash := seedBlob(t, ctx, db, store, url, []byte("photo bytes"))

	if _, err := db.ExecContext(ctx,
		`INSERT INTO attachments (id, message_id, filename, size, url, content_type, width, height, _extra)
		 VALUES (1, 1, 'vacation.png', 11, ?, 'image/png', NULL, NULL, NULL)`, url); err != nil {
		t.Fatalf("insert attachment: %v", err)
	}

	result, err := linker.Link(ctx, db, store, outDir)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if result.Linked != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want Linked=1 Skipped=0", result)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read outDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d linked files, want 1", len(entries))
	}
	name := entries[0].Name()
	wantPrefix := "vacation-" + hash[:8]
	if filepath.Ext(name) != ".png" {
		t.Errorf("link name %q missing .png extension", name)
	}
	if name[:len(wantPrefix)] != wantPrefix {
		t.Errorf("link name = %q, want prefix %q", name, wantPrefix)
	}

	info, err := os.Stat(filepath.Join(outDir, name))
	if err != nil {
		t.Fatalf("stat link: %v", err)
	}
	srcInfo, err := os.Stat(store.BlobPath(hash))
	if err != nil {
		t.Fatalf("stat blob: %v", err)
	}
	if !os.SameFile(info, srcInfo) {
		t.Error("linked file is not a hard link to the blob")
	}
}

func TestLinkFallsBackToURLBasenameWithoutAttachment(t *testing.T) {
	ctx := context.Background()
	db, store, outDir := setup(t)

	const url = "https://cdn.discordapp.com/emojis/123.png"
	seedBlob(t, ctx, db, store, url, []byte("emoji bytes"))

	result, err := linker.Link(ctx, db, store, outDir)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if result.Linked != 1 {
		t.Fatalf("Linked = %d, want 1", result.Linked)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read outDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d linked files, want 1", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".png" {
		t.Errorf("link name %q missing .png extension", entries[0].Name())
	}
}

func TestLinkSkipsUncommittedFiles(t *testing.T) {
	ctx := context.Background()
	db, store, outDir := setup(t)

	if _, err := db.ExecContext(ctx,
		`INSERT INTO files (url, content_hash, error_code) VALUES (?, NULL, 404)`,
		"https://cdn.discordapp.com/attachments/9/9/gone.png"); err != nil {
		t.Fatalf("insert failed file row: %v", err)
	}

	result, err := linker.Link(ctx, db, store, outDir)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if result.Linked != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want Linked=0 Skipped=1", result)
	}
}

func TestLinkSanitizesForbiddenCharacters(t *testing.T) {
	ctx := context.Background()
	db, store, outDir := setup(t)

	const url = "https://cdn.discordapp.com/attachments/1/2/weird.png"
	seedBlob(t, ctx, db, store, url, []byte("weird bytes"))

	if _, err := db.ExecContext(ctx,
		`INSERT INTO attachments (id, message_id, filename, size, url, content_type, width, height, _extra)
		 VALUES (2, 2, ?, 11, ?, 'image/png', NULL, NULL, NULL)`, `weird"name<>.png`, url); err != nil {
		t.Fatalf("insert attachment: %v", err)
	}

	if _, err := linker.Link(ctx, db, store, outDir); err != nil {
		t.Fatalf("Link: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read outDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d linked files, want 1", len(entries))
	}
	name := entries[0].Name()
	for _, c := range `"<>` {
		if bytesContainRune(name, c) {
			t.Errorf("link name %q still contains forbidden char %q", name, c)
		}
	}
}

func bytesContainRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
