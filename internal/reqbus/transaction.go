package reqbus

import (
	"context"
	"database/sql"
	"fmt"
)

// Transaction acquires the bus's single concurrency permit (spec.md §4.5:
// "acquires a concurrency permit (at most one transaction at a time)"),
// begins a *sql.Tx on the worker goroutine, runs body, and commits on
// success or rolls back on error — the Go-native shape of "sends Begin,
// runs body, sends Commit on success or Rollback on throw, releases the
// permit."
func (b *Bus) Transaction(ctx context.Context, body func(tx *sql.Tx) error) error {
	select {
	case b.permit <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.permit }()

	type result struct{ err error }
	reply := make(chan result, 1)
	b.cmds <- func(db *sql.DB) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			reply <- result{fmt.Errorf("reqbus: begin: %w", err)}
			return
		}
		if err := body(tx); err != nil {
			_ = tx.Rollback()
			reply <- result{err}
			return
		}
		if err := tx.Commit(); err != nil {
			reply <- result{fmt.Errorf("reqbus: commit: %w", err)}
			return
		}
		reply <- result{}
	}

	select {
	case r := <-reply:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
