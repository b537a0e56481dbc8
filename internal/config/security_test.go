package config

import (
	"os"
	"testing"
)

func TestIngestLimits_Defaults(t *testing.T) {
	for _, key := range []string{
		"ARCHIVER_MAX_EVENT_SIZE",
		"ARCHIVER_MAX_BATCH_SIZE",
		"ARCHIVER_MAX_MESSAGE_SIZE",
	} {
		os.Unsetenv(key)
	}

	limits := LoadIngestLimits()

	if limits.MaxEventSize != DefaultMaxEventSize {
		t.Errorf("MaxEventSize = %d, want %d", limits.MaxEventSize, DefaultMaxEventSize)
	}
	if limits.MaxBatchSize != DefaultMaxBatchSize {
		t.Errorf("MaxBatchSize = %d, want %d", limits.MaxBatchSize, DefaultMaxBatchSize)
	}
	if limits.MaxMessageSize != DefaultMaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want %d", limits.MaxMessageSize, DefaultMaxMessageSize)
	}
}

func TestIngestLimits_EnvOverrides(t *testing.T) {
	t.Setenv("ARCHIVER_MAX_EVENT_SIZE", "2048")
	t.Setenv("ARCHIVER_MAX_BATCH_SIZE", "50")
	t.Setenv("ARCHIVER_MAX_MESSAGE_SIZE", "4096")

	limits := LoadIngestLimits()

	if limits.MaxEventSize != 2048 {
		t.Errorf("MaxEventSize = %d, want 2048", limits.MaxEventSize)
	}
	if limits.MaxBatchSize != 50 {
		t.Errorf("MaxBatchSize = %d, want 50", limits.MaxBatchSize)
	}
	if limits.MaxMessageSize != 4096 {
		t.Errorf("MaxMessageSize = %d, want 4096", limits.MaxMessageSize)
	}
}

func TestIngestLimits_Validate_Valid(t *testing.T) {
	limits := LoadIngestLimits()
	if err := limits.Validate(); err != nil {
		t.Errorf("default limits should be valid: %v", err)
	}
}

func TestIngestLimits_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*IngestLimits)
	}{
		{"zero max_event_size", func(l *IngestLimits) { l.MaxEventSize = 0 }},
		{"negative max_batch_size", func(l *IngestLimits) { l.MaxBatchSize = -1 }},
		{"zero max_message_size", func(l *IngestLimits) { l.MaxMessageSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := LoadIngestLimits()
			tt.modify(&limits)
			if err := limits.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
