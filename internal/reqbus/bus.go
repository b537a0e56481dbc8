// Package reqbus implements the request bus of spec.md §4.5: upstream
// event handlers (out of scope) submit typed requests, which are
// serialized onto a single-writer goroutine that owns the database handle
// and dispatches into the snapshot engine and file store. Grounded on
// thrum's internal/daemon/safedb (single-writer handle discipline) and
// internal/filestore's own channel-owned-state idiom, generalized from an
// in-memory map owner to a *sql.DB owner.
package reqbus

import (
	"context"
	"database/sql"
	"sync"

	"github.com/duarte-pardal/discord-archiver/internal/filestore"
	"github.com/duarte-pardal/discord-archiver/internal/snapshot"
)

type command func(db *sql.DB)

// Bus is the single point of entry into the archive database. Exactly one
// goroutine (run) ever touches db directly, matching spec.md §4.5's shared
// resource policy ("only the worker mutates the DB").
type Bus struct {
	db        *sql.DB
	engine    *snapshot.Engine
	cmds      chan command
	permit    chan struct{} // 1-buffered transaction/close concurrency permit
	done      chan struct{}
	closeOnce sync.Once
}

// New starts the bus's worker goroutine over db. The command queue holds up
// to 64 pending requests before Submit/Transaction/QueryIterator block; spec.md doesn't mandate a specific depth, 64 matches the teacher's
// own send-queue sizing convention (internal/daemon's buffered channels).
func New(db *sql.DB) *Bus {
	b := &Bus{
		db:     db,
		engine: snapshot.New(db),
		cmds:   make(chan command, 64),
		permit: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.done)
	for cmd := range b.cmds {
		cmd(b.db)
	}
}

// Close acquires the concurrency permit (so it drains any in-flight
// transaction first), then terminates the worker. Per spec.md §4.5: "close
// uses the same permit to drain in-flight work, then signals the worker to
// terminate." Safe to call more than once; only the first call's result is
// meaningful, later calls return nil once the worker has stopped.
func (b *Bus) Close(ctx context.Context) error {
	select {
	case b.permit <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.permit }()

	b.closeOnce.Do(func() { close(b.cmds) })
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FileTransaction runs a media-bearing request's file commit and object
// row writes on the worker goroutine, via internal/filestore.DoFileTransaction.
// This is how "the worker dispatches to... the file store and acquisition
// coordinator" (spec.md §2 data-flow) without letting any goroutine but the
// worker touch db.
func (b *Bus) FileTransaction(ctx context.Context, handles []*filestore.Handle, fn func(tx *sql.Tx, results []filestore.FileResult) error) error {
	type result struct{ err error }
	reply := make(chan result, 1)
	b.cmds <- func(db *sql.DB) {
		reply <- result{filestore.DoFileTransaction(ctx, db, handles, fn)}
	}
	select {
	case r := <-reply:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
