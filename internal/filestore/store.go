package filestore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Store owns the on-disk blob directory and the files table rows that
// reference it (spec.md §4.3). Blobs live at <root>/<base64url(hash)>;
// in-progress downloads live under <root>/pending/ until promoted.
type Store struct {
	root    string
	pending string
	db      *sql.DB
	log     *slog.Logger
}

// Open opens (creating if necessary) the blob store rooted at root, and
// runs the crash-recovery reconciliation pass described in spec.md §4.3's
// "The file store's pending directory is fully reconciled on each open".
func Open(ctx context.Context, root string, db *sql.DB, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	pending := filepath.Join(root, "pending")
	if err := os.MkdirAll(pending, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create pending dir: %w", err)
	}
	s := &Store{root: root, pending: pending, db: db, log: log}
	if err := s.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("filestore: reconcile on open: %w", err)
	}
	return s, nil
}

// Close removes the pending directory, which should be empty by the time
// every acquisition has been awaited (spec.md §4.3 Close semantics: "Remove
// the (expected empty) pending/ directory; a non-empty warning is
// non-fatal."). Callers must quiesce the file store's Coordinator first
// (Coordinator.Close) so no acquisition is still writing into pending/.
// The database handle itself is owned by the caller, not the store.
func (s *Store) Close() error {
	if err := os.Remove(s.pending); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.log.Warn("filestore: pending directory not empty at close", "path", s.pending, "error", err)
		return nil
	}
	return nil
}

// BlobPath returns the path a blob with the given content hash (hex) would
// live at once committed.
func (s *Store) BlobPath(hash string) string {
	return filepath.Join(s.root, blobName(hash))
}

// blobName renders a hex content hash as the base64url filename used on
// disk (spec.md §6 "Blob filenames are base64url-encoded content hashes").
func blobName(hash string) string {
	raw, err := hex.DecodeString(hash)
	if err != nil {
		return hash
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// reconcile walks pending/ and the files table to restore the "every
// non-null-hash files row has a corresponding blob" invariant after a
// crash (spec.md §3/§4.3): a pending file matching a committed hash, by its
// name or by the hash of its content, is promoted into place; a pending file matching nothing is deleted; a files
// row whose blob is missing everywhere is cleared so the URL is retried.
func (s *Store) reconcile(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT url, content_hash FROM files WHERE content_hash IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("list committed files: %w", err)
	}
	type committed struct{ url, hash string }
	var entries []committed
	for rows.Next() {
		var c committed
		if err := rows.Scan(&c.url, &c.hash); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	pendingNames := make(map[string]bool)
	pendingByHash := make(map[string]string)
	dirEntries, err := os.ReadDir(s.pending)
	if err != nil {
		return fmt.Errorf("read pending dir: %w", err)
	}
	for _, de := range dirEntries {
		pendingNames[de.Name()] = true
		if h, _, err := hashFile(filepath.Join(s.pending, de.Name())); err == nil {
			pendingByHash[h] = de.Name()
		}
	}

	for _, c := range entries {
		name := blobName(c.hash)
		finalPath := filepath.Join(s.root, name)
		if _, err := os.Stat(finalPath); err == nil {
			delete(pendingNames, name)
			continue
		}
		pendingName := name
		if byHash, ok := pendingByHash[c.hash]; ok && !pendingNames[name] {
			pendingName = byHash
		}
		pendingPath := filepath.Join(s.pending, pendingName)
		if _, err := os.Stat(pendingPath); err == nil {
			if err := os.Rename(pendingPath, finalPath); err != nil {
				return fmt.Errorf("promote orphaned pending blob %q: %w", pendingName, err)
			}
			delete(pendingNames, pendingName)
			s.log.InfoContext(ctx, "filestore: promoted pending blob left by crash", "hash", c.hash)
			continue
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE files SET content_hash = NULL WHERE url = ?`, c.url); err != nil {
			return fmt.Errorf("clear incomplete file row for %q: %w", c.url, err)
		}
		s.log.WarnContext(ctx, "filestore: download determined incomplete on recovery, will retry", "url", c.url)
	}

	for name := range pendingNames {
		if err := os.Remove(filepath.Join(s.pending, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove orphan pending file %q: %w", name, err)
		}
		s.log.InfoContext(ctx, "filestore: removed orphan pending file", "name", name)
	}
	return nil
}

// CreatePending opens a new file under pending/ for a download in progress,
// named randomly so concurrent downloads never collide before their hash
// is known.
func (s *Store) CreatePending() (*os.File, error) {
	f, err := os.CreateTemp(s.pending, "dl-*")
	if err != nil {
		return nil, fmt.Errorf("filestore: create pending file: %w", err)
	}
	return f, nil
}

// AbortPending deletes a pending file without promoting it, per spec.md
// §4.3's "Blobs are created as pending files; they either become
// hash-named on commit or are deleted on abort."
func (s *Store) AbortPending(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filestore: abort pending file: %w", err)
	}
	return nil
}

// WriteFileRow is the write_to_db step of spec.md §4.3's file-transaction
// algorithm: it records the files table row inside the caller's own *sql.Tx,
// so the row and the object row that references it commit (or roll back)
// together. It must run before the blob is settled, not after: SettleBlob
// is only safe to call once this transaction has actually committed.
func (s *Store) WriteFileRow(ctx context.Context, tx *sql.Tx, url, hash string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (url, content_hash, error_code) VALUES (?, ?, NULL)
		 ON CONFLICT(url) DO UPDATE SET content_hash = excluded.content_hash, error_code = NULL`,
		url, hash); err != nil {
		return fmt.Errorf("filestore: record files row: %w", err)
	}
	return nil
}

// SettleBlob promotes a completed pending file into its final
// hash-addressed location (or discards it if a blob with that hash is
// already there, committed by a previous acquisition for a different url).
// Call only after the transaction that wrote this hash's files row via
// WriteFileRow has committed — settling before that would let the blob
// outlive a rolled-back object row, the bug spec.md §8 property 6 rules out.
// Idempotent: settling a pendingPath that another handle for the same
// in-flight download already promoted is not an error.
func (s *Store) SettleBlob(pendingPath, hash string) error {
	finalPath := s.BlobPath(hash)
	if _, statErr := os.Stat(finalPath); statErr == nil {
		if rmErr := os.Remove(pendingPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("filestore: remove duplicate pending file: %w", rmErr)
		}
		return nil
	}

	if err := renameWithRetry(pendingPath, finalPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("filestore: promote pending file: %w", err)
	}
	return nil
}

// CommitFailure records a permanent download failure against url
// (spec.md §7 "Permanent HTTP failures: the status code is stored against
// the URL; the URL is never retried automatically").
func (s *Store) CommitFailure(ctx context.Context, url string, statusCode int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (url, content_hash, error_code) VALUES (?, NULL, ?)
		 ON CONFLICT(url) DO UPDATE SET error_code = excluded.error_code`,
		url, statusCode)
	if err != nil {
		return fmt.Errorf("filestore: record permanent failure for %q: %w", url, err)
	}
	return nil
}

// Lookup reports the current files row for url, if any.
func (s *Store) Lookup(ctx context.Context, url string) (hash string, errorCode int, found bool, err error) {
	var hashVal sql.NullString
	var code sql.NullInt64
	row := s.db.QueryRowContext(ctx, `SELECT content_hash, error_code FROM files WHERE url = ?`, url)
	err = row.Scan(&hashVal, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("filestore: lookup %q: %w", url, err)
	}
	if code.Valid {
		errorCode = int(code.Int64)
	}
	return hashVal.String, errorCode, true, nil
}

func hashFile(path string) (hash string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pending file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash pending file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), n, nil
}

// renameWithRetry retries a rename up to twice on EPERM, per spec.md §7
// "Filesystem transient (rename EPERM): retried up to 2 times on settle" —
// some platforms report a transient permission error for a brief window
// after a file handle closes.
func renameWithRetry(oldPath, newPath string) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = os.Rename(oldPath, newPath)
		if err == nil || !errors.Is(err, os.ErrPermission) {
			return err
		}
	}
	return err
}
