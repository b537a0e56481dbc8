// Package logging wires up the archiver's single log/slog logger
// (SPEC_FULL.md §6 AMBIENT: "log/slog throughout... one logger threaded
// via context or constructor injection"). The rest of the tree never
// constructs its own handler — every package takes a *slog.Logger through
// New/Open constructors, grounded on the teacher's own constructor-injection
// style in internal/filestore.Open and internal/download.New.
package logging

import (
	"log/slog"
	"os"
)

// Options configures the process-wide logger.
type Options struct {
	// JSON selects slog.JSONHandler over slog.TextHandler. CLI runs default
	// to text; automation (archiver --json) wants JSON.
	JSON bool
	// Debug lowers the minimum level to slog.LevelDebug.
	Debug bool
}

// New builds the archiver's root logger, writing to stderr so stdout stays
// free for any structured command output (matching cmd/archiver's
// --json flag convention for command results).
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	return slog.New(handler)
}
