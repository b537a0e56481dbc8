package filestore

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FileResult is one handle's settled outcome, ready for a caller to embed
// in the object row it is about to write (an attachment, a sticker image).
type FileResult struct {
	URL       string
	Hash      string
	ErrorCode int
}

// DoFileTransaction implements spec.md §4.3's file-transaction algorithm in
// full: wait for every handle's download to resolve concurrently (spec.md
// §9 "Cross-thread DB worker" / concurrent acquisition await), write_to_db
// each handle's files row and run the caller's fn in one *sql.Tx so both
// commit or roll back together, and only once that commit has actually
// happened, settle every handle's blob into its final location. A failure
// at any step — acquiring, beginning the transaction, writing a files row,
// fn itself, or the commit — rolls back and leaves nothing settled. When
// acquiring fails, every handle is released with abort, which removes the
// downloaded bytes; after a later failure they stay under pending/ for the
// next Open's reconcile pass to sweep up. Handles are always released
// exactly once, regardless of outcome.
func DoFileTransaction(ctx context.Context, db *sql.DB, handles []*Handle, fn func(tx *sql.Tx, results []FileResult) error) error {
	results := make([]FileResult, len(handles))

	group, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		i, h := i, h
		group.Go(func() error {
			hash, code, err := h.Wait(gctx)
			if err != nil {
				return fmt.Errorf("acquire %q: %w", h.URL, err)
			}
			results[i] = FileResult{URL: h.URL, Hash: hash, ErrorCode: code}
			return nil
		})
	}
	waitErr := group.Wait()

	for _, h := range handles {
		h.Release(waitErr != nil)
	}
	if waitErr != nil {
		return waitErr
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("filestore: begin transaction: %w", err)
	}

	for _, h := range handles {
		if err := h.WriteToDB(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := fn(tx, results); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("filestore: commit transaction: %w", err)
	}

	for _, h := range handles {
		if err := h.Settle(); err != nil {
			h.coordinator.log.Error("filestore: settle blob after commit", "url", h.URL, "error", err)
		}
	}
	return nil
}
