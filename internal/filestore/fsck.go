package filestore

import (
	"context"
	"fmt"
	"os"
)

// FsckReport summarizes a read-only consistency pass over the blob store,
// driven by `archiver fsck` (spec.md §6 / SPEC_FULL.md §6 CLI section).
type FsckReport struct {
	Checked     int      // committed files rows examined
	Missing     []string // urls whose blob file doesn't exist on disk
	HashMismatch []string // urls whose blob content no longer hashes to content_hash
}

// OK reports whether the store passed with no missing blobs or corrupted content.
func (r FsckReport) OK() bool {
	return len(r.Missing) == 0 && len(r.HashMismatch) == 0
}

// Fsck re-hashes every committed blob and compares it against the files
// table's content_hash, independent of the crash-recovery reconcile pass
// Open already runs (reconcile only restores the pending/committed
// invariant; it never re-verifies bytes already promoted into place).
// Fsck makes no changes — it reports, the operator decides.
func (s *Store) Fsck(ctx context.Context) (FsckReport, error) {
	var report FsckReport

	rows, err := s.db.QueryContext(ctx, `SELECT url, content_hash FROM files WHERE content_hash IS NOT NULL`)
	if err != nil {
		return report, fmt.Errorf("filestore: fsck: list committed files: %w", err)
	}
	defer rows.Close()

	type committed struct{ url, hash string }
	var entries []committed
	for rows.Next() {
		var c committed
		if err := rows.Scan(&c.url, &c.hash); err != nil {
			return report, fmt.Errorf("filestore: fsck: scan row: %w", err)
		}
		entries = append(entries, c)
	}
	if err := rows.Err(); err != nil {
		return report, fmt.Errorf("filestore: fsck: iterate rows: %w", err)
	}

	for _, c := range entries {
		report.Checked++
		path := s.BlobPath(c.hash)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				report.Missing = append(report.Missing, c.url)
				continue
			}
			return report, fmt.Errorf("filestore: fsck: stat %q: %w", path, err)
		}

		actualHash, _, err := hashFile(path)
		if err != nil {
			return report, fmt.Errorf("filestore: fsck: hash %q: %w", path, err)
		}
		if actualHash != c.hash {
			report.HashMismatch = append(report.HashMismatch, c.url)
		}
	}

	return report, nil
}
