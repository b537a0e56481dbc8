package gateway_test

import (
	"strings"
	"testing"

	"github.com/duarte-pardal/discord-archiver/internal/config"
	"github.com/duarte-pardal/discord-archiver/internal/gateway"
)

func TestParseEnvelopeRejectsOversizedPayload(t *testing.T) {
	limits := config.IngestLimits{MaxEventSize: 16, MaxBatchSize: 1000, MaxMessageSize: 100}
	data := []byte(`{"op":0,"t":"` + strings.Repeat("x", 32) + `"}`)

	if _, err := gateway.ParseEnvelope(data, limits); err == nil {
		t.Fatal("expected error for oversized payload, got nil")
	}
}

func TestParseEnvelopeAcceptsPayloadWithinLimit(t *testing.T) {
	limits := config.IngestLimits{MaxEventSize: 4096, MaxBatchSize: 1000, MaxMessageSize: 100}
	data := []byte(`{"op":0,"t":"MESSAGE_CREATE"}`)

	env, err := gateway.ParseEnvelope(data, limits)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.Type != "MESSAGE_CREATE" {
		t.Errorf("Type = %q, want MESSAGE_CREATE", env.Type)
	}
}

func TestValidateChunkSizeRejectsOverBatchLimit(t *testing.T) {
	limits := config.IngestLimits{MaxEventSize: 4096, MaxBatchSize: 2, MaxMessageSize: 100}
	members := []map[string]any{{"id": "1"}, {"id": "2"}, {"id": "3"}}

	if err := gateway.ValidateChunkSize(members, limits); err == nil {
		t.Fatal("expected error for oversized chunk, got nil")
	}
}

func TestValidateChunkSizeAcceptsWithinLimit(t *testing.T) {
	limits := config.IngestLimits{MaxEventSize: 4096, MaxBatchSize: 2, MaxMessageSize: 100}
	members := []map[string]any{{"id": "1"}}

	if err := gateway.ValidateChunkSize(members, limits); err != nil {
		t.Fatalf("ValidateChunkSize: %v", err)
	}
}

func TestTruncateMessageContentClipsOverLongContent(t *testing.T) {
	limits := config.IngestLimits{MaxEventSize: 4096, MaxBatchSize: 1000, MaxMessageSize: 5}
	msg := map[string]any{"content": "hello world"}

	gateway.TruncateMessageContent(msg, limits)

	if msg["content"] != "hello" {
		t.Errorf("content = %q, want %q", msg["content"], "hello")
	}
}

func TestTruncateMessageContentLeavesShortContentUntouched(t *testing.T) {
	limits := config.IngestLimits{MaxEventSize: 4096, MaxBatchSize: 1000, MaxMessageSize: 100}
	msg := map[string]any{"content": "hi"}

	gateway.TruncateMessageContent(msg, limits)

	if msg["content"] != "hi" {
		t.Errorf("content = %q, want unchanged %q", msg["content"], "hi")
	}
}
