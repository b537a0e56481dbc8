package filestore_test

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/duarte-pardal/discord-archiver/internal/filestore"
	"github.com/duarte-pardal/discord-archiver/internal/schema"
)

func newStore(t *testing.T) (*filestore.Store, string, *sql.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := schema.OpenDB(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	root := filepath.Join(dir, "blobs")
	st, err := filestore.Open(context.Background(), root, db, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st, root, db
}

type fakeDownloader struct {
	content map[string][]byte
	calls   int
	block   chan struct{}
}

func (f *fakeDownloader) Download(ctx context.Context, url string, dest *os.File) error {
	f.calls++
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, err := dest.Write(f.content[url])
	return err
}

func TestNormalizeURLStripsKnownCDNQuery(t *testing.T) {
	in := "https://cdn.discordapp.com/attachments/1/2/file.png?ex=123&hm=abc"
	want := "https://cdn.discordapp.com/attachments/1/2/file.png"
	if got := filestore.NormalizeURL(in); got != want {
		t.Errorf("NormalizeURL = %q, want %q", got, want)
	}

	untouched := "https://example.com/file.png?v=1"
	if got := filestore.NormalizeURL(untouched); got != untouched {
		t.Errorf("NormalizeURL changed a non-CDN url: %q", got)
	}
}

// TestScenarioS4AttachmentDedup mirrors spec.md §8 S4: two messages
// posting the same URL cause one download.
func TestScenarioS4AttachmentDedup(t *testing.T) {
	st, _, db := newStore(t)
	ctx := context.Background()
	const url = "https://cdn.discordapp.com/attachments/1/2/shared.png"

	dl := &fakeDownloader{content: map[string][]byte{url: []byte("same bytes")}}
	coord := filestore.NewCoordinator(st, dl, nil)

	h1, err := coord.AcquireIfNeeded(ctx, url)
	if err != nil {
		t.Fatalf("first AcquireIfNeeded: %v", err)
	}
	var hash1 string
	err = filestore.DoFileTransaction(ctx, db, []*filestore.Handle{h1}, func(tx *sql.Tx, results []filestore.FileResult) error {
		hash1 = results[0].Hash
		return nil
	})
	if err != nil {
		t.Fatalf("DoFileTransaction: %v", err)
	}

	h2, err := coord.AcquireIfNeeded(ctx, url)
	if err != nil {
		t.Fatalf("second AcquireIfNeeded: %v", err)
	}
	if !h2.AlreadyInDB {
		t.Fatal("expected second acquisition to report AlreadyInDB")
	}
	h2.Release(false)

	if dl.calls != 1 {
		t.Errorf("download calls = %d, want 1", dl.calls)
	}
	if h2.Hash != hash1 {
		t.Errorf("second hash = %q, want %q", h2.Hash, hash1)
	}
	if _, err := os.Stat(st.BlobPath(hash1)); err != nil {
		t.Errorf("blob missing on disk: %v", err)
	}
}

// TestFileTransactionRollbackLeavesNoPrematureCommit verifies the fix for
// the atomicity bug where a successful download's files row and blob
// promotion used to happen before the caller's transaction body ran: a
// download that succeeds but whose fn then fails must leave neither a
// files row nor a promoted blob behind.
func TestFileTransactionRollbackLeavesNoPrematureCommit(t *testing.T) {
	st, root, db := newStore(t)
	ctx := context.Background()
	const url = "https://cdn.discordapp.com/attachments/3/3/rollback.png"

	dl := &fakeDownloader{content: map[string][]byte{url: []byte("rolled back bytes")}}
	coord := filestore.NewCoordinator(st, dl, nil)

	h, err := coord.AcquireIfNeeded(ctx, url)
	if err != nil {
		t.Fatalf("AcquireIfNeeded: %v", err)
	}

	var hash string
	boom := errBoom{}
	err = filestore.DoFileTransaction(ctx, db, []*filestore.Handle{h}, func(tx *sql.Tx, results []filestore.FileResult) error {
		hash = results[0].Hash
		return boom
	})
	if err != boom {
		t.Fatalf("DoFileTransaction err = %v, want boom", err)
	}
	if hash == "" {
		t.Fatal("expected a hash to have been computed before fn ran")
	}

	if _, _, found, err := st.Lookup(ctx, url); err != nil {
		t.Fatalf("Lookup: %v", err)
	} else if found {
		t.Error("expected no files row after rolled-back transaction")
	}
	if _, err := os.Stat(st.BlobPath(hash)); err == nil {
		t.Error("expected no promoted blob after rolled-back transaction")
	}

	pendingEntries, err := os.ReadDir(filepath.Join(root, "pending"))
	if err != nil {
		t.Fatalf("read pending dir: %v", err)
	}
	if len(pendingEntries) != 1 {
		t.Fatalf("pending dir entries = %d, want 1 orphaned file awaiting reconcile", len(pendingEntries))
	}

	if _, err := filestore.Open(ctx, root, db, nil); err != nil {
		t.Fatalf("reopen (reconcile): %v", err)
	}
	pendingEntries, err = os.ReadDir(filepath.Join(root, "pending"))
	if err != nil {
		t.Fatalf("read pending dir after reconcile: %v", err)
	}
	if len(pendingEntries) != 0 {
		t.Errorf("pending dir not swept by reconcile: %v", pendingEntries)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// TestScenarioS5AbortDuringFileTransaction mirrors spec.md §8 S5: abort
// before the download resolves leaves no pending file and no files row.
func TestScenarioS5AbortDuringFileTransaction(t *testing.T) {
	st, root, _ := newStore(t)
	const url = "https://cdn.discordapp.com/attachments/9/9/slow.png"

	block := make(chan struct{})
	dl := &fakeDownloader{content: map[string][]byte{url: []byte("never arrives")}, block: block}
	coord := filestore.NewCoordinator(st, dl, nil)

	h, err := coord.AcquireIfNeeded(context.Background(), url)
	if err != nil {
		t.Fatalf("AcquireIfNeeded: %v", err)
	}

	// last (only) caller aborts before the download resolves.
	h.Release(true)
	close(block)

	_, _, err = h.Wait(context.Background())
	if err != filestore.ErrAborted {
		t.Fatalf("Wait err = %v, want ErrAborted", err)
	}

	pendingEntries, err := os.ReadDir(filepath.Join(root, "pending"))
	if err != nil {
		t.Fatalf("read pending dir: %v", err)
	}
	if len(pendingEntries) != 0 {
		t.Errorf("pending dir not empty after abort: %v", pendingEntries)
	}

	_, _, found, err := st.Lookup(context.Background(), url)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Error("expected no files row for aborted acquisition")
	}
}

func TestReconcilePromotesOrphanedPendingBlob(t *testing.T) {
	dir := t.TempDir()
	db, err := schema.OpenDB(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	root := filepath.Join(dir, "blobs")
	st, err := filestore.Open(context.Background(), root, db, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const url = "https://cdn.discordapp.com/attachments/1/1/crashed.png"
	const hash = "deadbeef00112233445566778899aabbccddeeff00112233445566778899aa"
	if _, err := db.Exec(`INSERT INTO files (url, content_hash, error_code) VALUES (?, ?, NULL)`, url, hash); err != nil {
		t.Fatalf("insert files row: %v", err)
	}

	pendingBlobPath := filepath.Join(root, "pending", blobNameForTest(hash))
	if err := os.WriteFile(pendingBlobPath, []byte("crashed mid-commit"), 0o644); err != nil {
		t.Fatalf("write pending blob: %v", err)
	}

	if _, err := filestore.Open(context.Background(), root, db, nil); err != nil {
		t.Fatalf("reopen (reconcile): %v", err)
	}

	if _, err := os.Stat(st.BlobPath(hash)); err != nil {
		t.Errorf("expected promoted blob at %s: %v", st.BlobPath(hash), err)
	}
}

func blobNameForTest(hash string) string {
	raw, err := hex.DecodeString(hash)
	if err != nil {
		return hash
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}
