package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/duarte-pardal/discord-archiver/internal/config"
)

// ParseEnvelope decodes a raw gateway payload into an Envelope, rejecting
// anything over limits.MaxEventSize before it is ever unmarshaled. Every
// dispatch the (out-of-scope) connector hands off passes through here
// first, so this is where SPEC_FULL.md's ingest size ceiling actually
// binds rather than at some per-event-type decode path downstream.
func ParseEnvelope(data []byte, limits config.IngestLimits) (Envelope, error) {
	if len(data) > limits.MaxEventSize {
		return Envelope{}, fmt.Errorf("gateway: payload of %d bytes exceeds max_event_size %d", len(data), limits.MaxEventSize)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("gateway: decode envelope: %w", err)
	}
	return env, nil
}

// ValidateChunkSize rejects a GUILD_MEMBERS_CHUNK page carrying more rows
// than limits.MaxBatchSize, the ingest boundary's defense against a
// misbehaving or compromised gateway peer inflating one page to exhaust
// memory building the member object graph.
func ValidateChunkSize(members []map[string]any, limits config.IngestLimits) error {
	if len(members) > limits.MaxBatchSize {
		return fmt.Errorf("gateway: members chunk of %d rows exceeds max_batch_size %d", len(members), limits.MaxBatchSize)
	}
	return nil
}

// TruncateMessageContent clips a message's content field to
// limits.MaxMessageSize bytes in place. An over-long message is still
// worth archiving truncated rather than dropped outright, unlike an
// oversized envelope or an oversized member chunk.
func TruncateMessageContent(message map[string]any, limits config.IngestLimits) {
	content, ok := message["content"].(string)
	if !ok || len(content) <= limits.MaxMessageSize {
		return
	}
	message["content"] = content[:limits.MaxMessageSize]
}
