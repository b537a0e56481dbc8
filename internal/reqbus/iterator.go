package reqbus

import (
	"context"
	"database/sql"
)

// Frame is one row pushed by a streaming query, or a terminal error. The
// channel closing is the Go-native equivalent of spec.md §4.5's
// `done=true` iterator-terminator message — callers range over Frames
// instead of checking a Done flag.
type Frame struct {
	Row []any
	Err error
}

// QueryIterator runs query as a streaming read on the worker goroutine,
// pushing one Frame per row until exhausted, an error occurs, or ctx is
// cancelled, then closes the returned channel. Because the worker
// processes commands one at a time, only one iterator can be in flight per
// Bus — any request submitted while this one drains queues behind it,
// exactly as spec.md §4.5 describes.
func (b *Bus) QueryIterator(ctx context.Context, query string, args ...any) <-chan Frame {
	out := make(chan Frame)
	b.cmds <- func(db *sql.DB) {
		defer close(out)

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			sendFrame(ctx, out, Frame{Err: err})
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			sendFrame(ctx, out, Frame{Err: err})
			return
		}

		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				sendFrame(ctx, out, Frame{Err: err})
				return
			}
			if !sendFrame(ctx, out, Frame{Row: vals}) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			sendFrame(ctx, out, Frame{Err: err})
		}
	}
	return out
}

// sendFrame delivers f unless ctx is cancelled first; it reports whether
// the send happened, so the caller can stop scanning on cancellation.
func sendFrame(ctx context.Context, out chan<- Frame, f Frame) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
