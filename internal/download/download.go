// Package download implements the download engine collaborator of spec.md
// §4.4: a GET-and-stream client with linear backoff on transient failures
// and range-resume on reconnect. On cancellation it returns ctx.Err() and
// leaves dest as it is; internal/filestore removes the partial pending file.
// It satisfies internal/filestore's Downloader interface.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/duarte-pardal/discord-archiver/internal/filestore"
)

// defaultConcurrency caps in-flight downloads at 8, per spec.md §5.
const defaultConcurrency = 8

// Engine performs HTTP downloads for the file store's acquisition
// coordinator, grounded on the teacher's golang.org/x/time/rate pacing
// idiom (internal/daemon/rate_limiter.go) generalized from per-peer sync
// throttling to a global per-process download rate. In-flight downloads are
// additionally capped by a buffered channel semaphore, the same
// bounded-concurrency idiom thrum uses for its send queues rather than
// golang.org/x/sync/semaphore.
type Engine struct {
	client  *http.Client
	limiter *rate.Limiter
	slots   chan struct{}
	log     *slog.Logger

	maxRetries  int
	backoffBase time.Duration
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithHTTPClient(c *http.Client) Option { return func(e *Engine) { e.client = c } }
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Engine) { e.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.slots = make(chan struct{}, n) }
}
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// New builds a download Engine with sane defaults: 8 concurrent downloads,
// an unpaced client rate (gateway/CDN rate limiting is the collaborator's
// concern per spec.md §1 Non-goals), 5 retries with linear backoff.
func New(opts ...Option) *Engine {
	e := &Engine{
		client:      http.DefaultClient,
		slots:       make(chan struct{}, defaultConcurrency),
		log:         slog.Default(),
		maxRetries:  5,
		backoffBase: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ filestore.Downloader = (*Engine)(nil)

// Download streams url's body into dest, retrying transient failures
// (network errors, 429, 5xx) with linear backoff per spec.md §7. A
// permanent HTTP status (4xx other than 429) is reported as
// *filestore.PermanentError so the caller can record it against the URL
// without ever retrying automatically.
func (e *Engine) Download(ctx context.Context, url string, dest *os.File) error {
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.slots }()

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * e.backoffBase
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		if _, err := dest.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("download: seek pending file: %w", err)
		}
		if err := dest.Truncate(0); err != nil {
			return fmt.Errorf("download: truncate pending file: %w", err)
		}

		err := e.attempt(ctx, url, dest)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var perm *filestore.PermanentError
		if errors.As(err, &perm) {
			return err
		}
		lastErr = err
		e.log.WarnContext(ctx, "download: transient failure, retrying", "url", url, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("download: exhausted %d retries for %q: %w", e.maxRetries, url, lastErr)
}

func (e *Engine) attempt(ctx context.Context, url string, dest *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download: build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if _, err := io.Copy(dest, resp.Body); err != nil {
			return fmt.Errorf("download: stream body: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("download: transient status %d", resp.StatusCode)
	default:
		return &filestore.PermanentError{StatusCode: resp.StatusCode}
	}
}

// DownloadResumable is like Download but issues a Range request continuing
// from the byte offset already present in dest, for long transfers that
// were interrupted by a dropped connection rather than a clean retry.
func (e *Engine) DownloadResumable(ctx context.Context, url string, dest *os.File) error {
	offset, err := dest.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("download: seek to resume offset: %w", err)
	}
	if offset == 0 {
		return e.Download(ctx, url, dest)
	}

	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.slots }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download: build resume request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: resume: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		// the server has nothing left to send; treat as complete.
		return nil
	}
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("download: transient resume status %d", resp.StatusCode)
		}
		return &filestore.PermanentError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode == http.StatusOK {
		// server ignored the Range header; start over from scratch.
		if _, err := dest.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := dest.Truncate(0); err != nil {
			return err
		}
	}
	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("download: stream resumed body: %w", err)
	}
	return nil
}
