// Package warnonce implements a process-lifetime, first-seen-only warning
// log: the same (kind, path, key) triple is only ever logged once, no matter
// how many times it is observed across the life of the process.
package warnonce

import (
	"context"
	"log/slog"
	"sync"
)

// Set is a concurrent dedup set keyed by an arbitrary comparable identity.
type Set struct {
	seen sync.Map // map[any]struct{}
}

// New returns an empty warning set.
func New() *Set {
	return &Set{}
}

// Key identifies one warning site: an object kind, the field path inside it,
// and the specific unrecognized key that triggered the warning.
type Key struct {
	Kind string
	Path string
	Name string
}

// Warn logs msg via slog at WARN level the first time this key is seen, and
// is silent on every subsequent call with the same key. It reports whether
// this call actually emitted the log line.
func (s *Set) Warn(ctx context.Context, logger *slog.Logger, key Key, msg string, args ...any) bool {
	if _, loaded := s.seen.LoadOrStore(key, struct{}{}); loaded {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}
	args = append([]any{
		slog.String("kind", key.Kind),
		slog.String("path", key.Path),
		slog.String("field", key.Name),
	}, args...)
	logger.WarnContext(ctx, msg, args...)
	return true
}

// Reset clears every key the set has seen. Intended for tests only.
func (s *Set) Reset() {
	s.seen.Range(func(k, _ any) bool {
		s.seen.Delete(k)
		return true
	})
}
