package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
	"github.com/duarte-pardal/discord-archiver/internal/discord"
)

var messageSpec = SpecFor(codec.KindMessage)

func init() {
	messageSpec.NormalizeExtras = normalizeMessageExtras
}

// compressReference implements spec.md §4.2's message_reference shorthand:
// the overwhelmingly common case of a reply or thread-starter reference
// points at the message's own channel (or, for a thread, the parent
// channel), so storing the full id there would waste 8 bytes on every
// reply. 0 means "same channel as this message", 1 means "parent channel of
// this thread"; anything else is stored as the literal channel id.
func compressReference(row codec.Row, channelID int64, threadParentID *int64) {
	if _, hasRef := row["message_reference__message_id"]; !hasRef {
		return
	}
	if v, ok := row["message_reference__channel_id"]; ok && v != nil {
		id := toRefInt(v)
		switch {
		case id == channelID:
			row["message_reference__channel_id"] = int64(0)
		case threadParentID != nil && id == *threadParentID:
			row["message_reference__channel_id"] = int64(1)
		default:
			row["message_reference__channel_id"] = id
		}
	}
}

// expandReference reverses compressReference for callers that need the
// literal referenced channel id (search results, the acquisition
// coordinator's backlog).
func expandReference(row codec.Row, channelID int64, threadParentID *int64) {
	v, ok := row["message_reference__channel_id"]
	if !ok || v == nil {
		return
	}
	switch toRefInt(v) {
	case 0:
		row["message_reference__channel_id"] = channelID
	case 1:
		if threadParentID != nil {
			row["message_reference__channel_id"] = *threadParentID
		}
	}
}

func toRefInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// AddMessageSnapshot records an observation of a message. channelID and
// threadParentID (nil unless channelID names a thread) drive the
// message_reference compression above; fts, when non-empty, is indexed
// into message_fts_index for search.
//
// channelID must already have a recorded channel or thread snapshot
// (spec.md §3's invariant that no message may be inserted for an unknown
// channel/thread); ErrMissingChannel reports a violation rather than
// letting the insert proceed and the archive end up with a message whose
// container can never be resolved.
func (e *Engine) AddMessageSnapshot(ctx context.Context, id int64, timing Timing, channelID int64, threadParentID *int64, row codec.Row, extras json.RawMessage, ftsContent string) (AddResult, error) {
	exists, err := e.channelOrThreadExists(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("snapshot: check channel %d exists: %w", channelID, err)
	}
	if !exists {
		return 0, ErrMissingChannel
	}

	compressReference(row, channelID, threadParentID)

	result, err := e.AddSnapshot(ctx, messageSpec, id, timing, row, extras, nil)
	if err != nil {
		return 0, err
	}

	if (result == AddedFirstSnapshot || result == AddedAnotherSnapshot) && ftsContent != "" {
		if err := e.indexMessageContent(ctx, id, channelID, threadParentID, ftsContent); err != nil {
			return result, fmt.Errorf("snapshot: index message %d for search: %w", id, err)
		}
	}
	return result, nil
}

// channelOrThreadExists reports whether id names a recorded channel or
// thread snapshot — a message's channelID may be either, since threads are
// addressable message containers in their own right.
func (e *Engine) channelOrThreadExists(ctx context.Context, id int64) (bool, error) {
	for _, spec := range [...]KindSpec{channelSpec, threadSpec} {
		var found int
		err := e.DB.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", spec.LatestTable), id).Scan(&found)
		if err == nil {
			return true, nil
		}
		if err != sql.ErrNoRows {
			return false, err
		}
	}
	return false, nil
}

func (e *Engine) indexMessageContent(ctx context.Context, messageID, channelID int64, threadParentID *int64, content string) error {
	var parent any
	if threadParentID != nil {
		parent = *threadParentID
	}
	if _, err := e.DB.ExecContext(ctx, `DELETE FROM message_fts_index WHERE message_id = ?`, messageID); err != nil {
		return err
	}
	_, err := e.DB.ExecContext(ctx,
		`INSERT INTO message_fts_index (content, message_id, channel_id, thread_parent_id) VALUES (?, ?, ?, ?)`,
		content, messageID, channelID, parent)
	return err
}

func (e *Engine) GetLatestMessage(ctx context.Context, id int64, channelID int64, threadParentID *int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	row, extras, deleted, timing, found, err := e.GetLatest(ctx, messageSpec, id)
	if found {
		expandReference(row, channelID, threadParentID)
	}
	return row, extras, deleted, timing, found, err
}

func (e *Engine) MarkMessageDeleted(ctx context.Context, id int64, timing Timing) (bool, error) {
	if _, err := e.DB.ExecContext(ctx, `DELETE FROM message_fts_index WHERE message_id = ?`, id); err != nil {
		return false, fmt.Errorf("snapshot: remove deleted message %d from search index: %w", id, err)
	}
	return e.MarkDeleted(ctx, messageSpec, id, timing)
}

// ListMessagesByChannel returns every message id snapshotted in channelID,
// for backfill gap detection.
func (e *Engine) ListMessagesByChannel(ctx context.Context, channelID int64) ([]int64, error) {
	return e.ListLatestByParent(ctx, messageSpec, "channel_id", channelID)
}

// normalizeMessageExtras strips CDN query strings (signature/expiry
// parameters that rotate without the underlying asset changing) from every
// known-CDN-host URL found in the message extras bag, per spec.md §4.2's
// "same as latest" comparison rule for embeds/attachments URLs — scoped to
// discord.KnownCDNHosts, the same rule internal/filestore.NormalizeURL
// applies to the files table key, so a URL that merely happens to carry a
// query string (a tracking link in an embed, say) isn't mistaken for an
// unchanged asset.
func normalizeMessageExtras(extras map[string]any) map[string]any {
	out := make(map[string]any, len(extras))
	for k, v := range extras {
		out[k] = normalizeExtraValue(v)
	}
	return out
}

func normalizeExtraValue(v any) any {
	switch val := v.(type) {
	case string:
		if discord.IsCDNURL(val) {
			if i := strings.IndexByte(val, '?'); i >= 0 {
				return val[:i]
			}
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeExtraValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeExtraValue(e)
		}
		return out
	default:
		return v
	}
}
