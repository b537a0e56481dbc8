package config

import (
	"fmt"
	"os"
	"strconv"
)

// IngestLimits bounds the size of payloads the gateway collaborator may
// hand to internal/codec and internal/snapshot, so a misbehaving or
// compromised gateway connection can't exhaust memory building the object
// graph for a single dispatch. Grounded on thrum's internal/config
// SecurityConfig, narrowed to the limits this archiver actually enforces:
// the original's peer-authorization and signature fields governed a
// multi-writer sync protocol this archiver doesn't have (single gateway
// connection, single writer, see DESIGN.md).
type IngestLimits struct {
	MaxEventSize   int // max decoded size, in bytes, of one gateway dispatch payload
	MaxBatchSize   int // max rows accepted in one MEMBERS_CHUNK or backfill page
	MaxMessageSize int // max message content size, in bytes, before truncation
}

// Default ingest limit values.
const (
	DefaultMaxEventSize   = 1 * 1024 * 1024 // 1 MB
	DefaultMaxBatchSize   = 1000
	DefaultMaxMessageSize = 100 * 1024 // 100 KB
)

// LoadIngestLimits loads ingest validation limits from environment
// variables, falling back to defaults.
//
// Environment variables:
//   - ARCHIVER_MAX_EVENT_SIZE: max gateway dispatch size in bytes
//   - ARCHIVER_MAX_BATCH_SIZE: max rows per member-chunk/backfill page
//   - ARCHIVER_MAX_MESSAGE_SIZE: max message content size in bytes
func LoadIngestLimits() IngestLimits {
	limits := IngestLimits{
		MaxEventSize:   DefaultMaxEventSize,
		MaxBatchSize:   DefaultMaxBatchSize,
		MaxMessageSize: DefaultMaxMessageSize,
	}

	if v := envInt("ARCHIVER_MAX_EVENT_SIZE"); v > 0 {
		limits.MaxEventSize = v
	}
	if v := envInt("ARCHIVER_MAX_BATCH_SIZE"); v > 0 {
		limits.MaxBatchSize = v
	}
	if v := envInt("ARCHIVER_MAX_MESSAGE_SIZE"); v > 0 {
		limits.MaxMessageSize = v
	}

	return limits
}

// Validate checks that the ingest limits have usable values.
func (l *IngestLimits) Validate() error {
	if l.MaxEventSize <= 0 {
		return fmt.Errorf("max_event_size must be positive, got %d", l.MaxEventSize)
	}
	if l.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", l.MaxBatchSize)
	}
	if l.MaxMessageSize <= 0 {
		return fmt.Errorf("max_message_size must be positive, got %d", l.MaxMessageSize)
	}
	return nil
}

// envInt reads an integer from an environment variable, returning 0 if unset or invalid.
func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
