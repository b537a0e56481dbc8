package filestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrAborted is returned by Handle.Wait when the acquisition's context was
// cancelled before the download finished — the dedicated abort error
// called for by spec.md §9's cooperative-cancellation design note, kept
// distinct from ordinary download failures so callers at every suspension
// point can recognize it without string matching.
var ErrAborted = errors.New("filestore: acquisition aborted")

// Downloader performs the actual network fetch, writing the response body
// into dest. It is a collaborator boundary: internal/download implements
// it; internal/filestore only orchestrates dedup, hashing and commit.
type Downloader interface {
	Download(ctx context.Context, url string, dest *os.File) error
}

// Handle is a caller's reference-counted stake in one URL's acquisition
// (spec.md §4.3/§9 "reference-counted acquisitions"). Release must be
// called exactly once per Handle. WriteToDB/Settle are the write_to_db and
// settle steps of the file-transaction algorithm; DoFileTransaction is the
// only production caller of either, in that order, with a commit of the
// caller's own transaction sequenced strictly in between.
type Handle struct {
	URL         string
	AlreadyInDB bool
	Hash        string
	ErrorCode   int

	coordinator *Coordinator
	acq         *acquisition // nil when AlreadyInDB
}

// Wait blocks until the underlying download (if any) finishes, then
// reports its outcome. Calling Wait on an AlreadyInDB handle returns
// immediately. On a successful live download it also records the hash on
// the Handle itself, so WriteToDB/Settle (called later, on the other side
// of a transaction boundary) don't need the caller to thread the result
// back in.
func (h *Handle) Wait(ctx context.Context) (hash string, errorCode int, err error) {
	if h.AlreadyInDB {
		return h.Hash, h.ErrorCode, nil
	}
	select {
	case <-h.acq.done:
		hash, errorCode, err = h.acq.result.hash, h.acq.result.errorCode, h.acq.result.err
		if err == nil {
			h.Hash, h.ErrorCode = hash, errorCode
		}
		return hash, errorCode, err
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}

// WriteToDB is the write_to_db step of spec.md §4.3's file-transaction
// algorithm: it records this handle's files row inside tx. Call only after
// Wait has resolved successfully. A no-op for AlreadyInDB handles and for
// permanent download failures, which CommitFailure already recorded
// independently (a terminal status against the url, not data that depends
// on any particular referencing object row).
func (h *Handle) WriteToDB(ctx context.Context, tx *sql.Tx) error {
	if h.AlreadyInDB || h.Hash == "" {
		return nil
	}
	return h.coordinator.store.WriteFileRow(ctx, tx, h.URL, h.Hash)
}

// Settle is the settle step of spec.md §4.3's file-transaction algorithm:
// it promotes this handle's downloaded blob into its final hash-addressed
// location. Call only after the transaction WriteToDB wrote into has
// committed successfully — settling any earlier would let the blob outlive
// a rolled-back object row. A no-op for AlreadyInDB handles and permanent
// download failures, which have no blob to settle.
func (h *Handle) Settle() error {
	if h.AlreadyInDB || h.Hash == "" {
		return nil
	}
	return h.coordinator.store.SettleBlob(h.acq.pendingPath, h.Hash)
}

// Release decrements the acquisition's refcount. abort requests that, if
// this was the last live reference and the download has not yet settled,
// the in-flight download is cancelled and its pending file removed.
func (h *Handle) Release(abort bool) {
	if h.AlreadyInDB {
		return
	}
	h.coordinator.release(h.acq, abort)
}

type acquireResult struct {
	hash      string
	errorCode int
	err       error
}

type acquisition struct {
	url         string
	refCount    int
	done        chan struct{}
	result      acquireResult
	cancel      context.CancelFunc
	pendingPath string
}

// coordinatorState is the Coordinator's single-goroutine-owned state:
// inflight holds acquisitions with at least one live (non-released) Handle;
// aborting holds acquisitions whose last handle requested abort but whose
// download goroutine hasn't finished tearing down yet, kept around
// specifically so Close can await them.
type coordinatorState struct {
	inflight map[string]*acquisition
	aborting map[*acquisition]bool
}

// Coordinator deduplicates concurrent downloads of the same URL and
// couples a successful download's commit to the files table. Its in-flight
// state is owned by a single goroutine reached only through cmds, per
// spec.md §9's "single-task-owner discipline (not a mutex)" design note —
// this is what makes "last caller aborted" decisions atomic without a
// lock held across I/O.
type Coordinator struct {
	store    *Store
	download Downloader
	log      *slog.Logger
	cmds     chan func(*coordinatorState)
}

func NewCoordinator(store *Store, download Downloader, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{store: store, download: download, log: log, cmds: make(chan func(*coordinatorState))}
	go c.run()
	return c
}

func (c *Coordinator) run() {
	state := &coordinatorState{
		inflight: make(map[string]*acquisition),
		aborting: make(map[*acquisition]bool),
	}
	for cmd := range c.cmds {
		cmd(state)
	}
}

// AcquireIfNeeded resolves url to either an existing files row (returned as
// an AlreadyInDB no-op handle, spec.md §8 S4) or a live download, joining
// an already-running download for the same URL if one exists.
func (c *Coordinator) AcquireIfNeeded(ctx context.Context, rawURL string) (*Handle, error) {
	normalized := NormalizeURL(rawURL)

	hash, code, found, err := c.store.Lookup(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if found && (hash != "" || code != 0) {
		return &Handle{URL: normalized, AlreadyInDB: true, Hash: hash, ErrorCode: code, coordinator: c}, nil
	}

	type joinResult struct {
		acq   *acquisition
		isNew bool
	}
	replyCh := make(chan joinResult, 1)
	c.cmds <- func(state *coordinatorState) {
		if a, ok := state.inflight[normalized]; ok {
			a.refCount++
			replyCh <- joinResult{a, false}
			return
		}
		downloadCtx, cancel := context.WithCancel(context.Background())
		a := &acquisition{url: normalized, refCount: 1, done: make(chan struct{}), cancel: cancel}
		state.inflight[normalized] = a
		replyCh <- joinResult{a, true}
		go c.runDownload(downloadCtx, a)
	}
	jr := <-replyCh

	return &Handle{URL: normalized, coordinator: c, acq: jr.acq}, nil
}

func (c *Coordinator) runDownload(ctx context.Context, a *acquisition) {
	defer close(a.done)

	f, err := c.store.CreatePending()
	if err != nil {
		a.result = acquireResult{err: err}
		return
	}
	a.pendingPath = f.Name()

	err = c.download.Download(ctx, a.url, f)
	_ = f.Close()
	if err != nil {
		if ctx.Err() != nil {
			_ = c.store.AbortPending(a.pendingPath)
			a.result = acquireResult{err: ErrAborted}
			return
		}
		if perm, ok := err.(*PermanentError); ok {
			if commitErr := c.store.CommitFailure(context.Background(), a.url, perm.StatusCode); commitErr != nil {
				a.result = acquireResult{err: commitErr}
				return
			}
			_ = c.store.AbortPending(a.pendingPath)
			a.result = acquireResult{errorCode: perm.StatusCode}
			return
		}
		_ = c.store.AbortPending(a.pendingPath)
		a.result = acquireResult{err: err}
		return
	}

	if ctx.Err() != nil {
		_ = c.store.AbortPending(a.pendingPath)
		a.result = acquireResult{err: ErrAborted}
		return
	}

	// Only the hash is computed here. The files row and the blob's final
	// location are the write_to_db/settle steps of spec.md §4.3's
	// file-transaction algorithm, driven by the caller through
	// Handle.WriteToDB/Handle.Settle — never as a side effect of the
	// download finishing, so a download that resolves successfully but
	// whose referencing object row never commits leaves nothing durable
	// behind but an orphaned pending file for the next reconcile to sweep.
	hash, _, err := hashFile(a.pendingPath)
	if err != nil {
		a.result = acquireResult{err: err}
		return
	}
	a.result = acquireResult{hash: hash}
}

// release decrements the refcount for acq; at zero, if abort was requested,
// a finished download's pending file is removed, and a running download's
// context is cancelled and acq is tracked as aborting until its download
// goroutine actually exits.
func (c *Coordinator) release(acq *acquisition, abort bool) {
	c.cmds <- func(state *coordinatorState) {
		acq.refCount--
		if acq.refCount > 0 {
			return
		}
		select {
		case <-acq.done:
			// already finished; nothing to cancel or await, but on abort the
			// downloaded bytes will never be settled.
			if abort && acq.result.hash != "" {
				_ = c.store.AbortPending(acq.pendingPath)
			}
		default:
			if abort {
				acq.cancel()
				state.aborting[acq] = true
				go func() {
					<-acq.done
					c.cmds <- func(state *coordinatorState) {
						delete(state.aborting, acq)
					}
				}()
			}
		}
		if cur, ok := state.inflight[acq.url]; ok && cur == acq {
			delete(state.inflight, acq.url)
		}
	}
}

// Close refuses to close while any acquisition still has a live,
// non-aborting caller waiting on it (spec.md §4.3 "Refuse if there are
// non-aborting outstanding acquisitions"), then awaits every acquisition
// that is mid-abort so its pending file is actually removed before Store's
// pending/ directory is expected to be empty.
func (c *Coordinator) Close(ctx context.Context) error {
	type snapshot struct {
		outstanding int
		aborting    []*acquisition
	}
	replyCh := make(chan snapshot, 1)
	c.cmds <- func(state *coordinatorState) {
		s := snapshot{outstanding: len(state.inflight)}
		for a := range state.aborting {
			s.aborting = append(s.aborting, a)
		}
		replyCh <- s
	}
	var snap snapshot
	select {
	case snap = <-replyCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	if snap.outstanding > 0 {
		return fmt.Errorf("filestore: refusing to close: %d acquisition(s) still outstanding", snap.outstanding)
	}
	for _, a := range snap.aborting {
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// PermanentError marks a download failure as a non-retryable HTTP status,
// per spec.md §7 "Permanent HTTP failures".
type PermanentError struct {
	StatusCode int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("filestore: permanent download failure (status %d)", e.StatusCode)
}
