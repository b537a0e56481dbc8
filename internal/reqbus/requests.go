package reqbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
	"github.com/duarte-pardal/discord-archiver/internal/snapshot"
)

// errUnversionedKind is returned when one of the five generic requests
// names a Kind with no latest/previous table pair (member, attachment,
// sticker) — those kinds have their own dedicated request types below
// instead, since SpecFor would otherwise build a nonexistent table name.
var errUnversionedKind = errors.New("kind has no generic snapshot table")

// Request is the tagged-variant request protocol of spec.md §4.5: each
// concrete type below names one request an upstream event handler can
// issue through Bus.Submit, with exactly one reply shape (mirrors thrum's
// internal/types/events.go discriminated-struct style, generalized from
// wire events to in-process requests).
type Request interface {
	isRequest()
}

// AddSnapshotRequest records an observation of one of the eight
// generically-versioned kinds (spec.md §4.2).
type AddSnapshotRequest struct {
	Kind    codec.Kind
	ID      int64
	Timing  snapshot.Timing
	Row     codec.Row
	Extras  json.RawMessage
	Partial map[string]bool
}

func (AddSnapshotRequest) isRequest() {}

// MarkDeletedRequest records an object's deletion timing.
type MarkDeletedRequest struct {
	Kind   codec.Kind
	ID     int64
	Timing snapshot.Timing
}

func (MarkDeletedRequest) isRequest() {}

// GetLatestRequest fetches an object's current snapshot.
type GetLatestRequest struct {
	Kind codec.Kind
	ID   int64
}

func (GetLatestRequest) isRequest() {}

// LatestResult is GetLatestRequest's reply.
type LatestResult struct {
	Row     codec.Row
	Extras  json.RawMessage
	Deleted bool
	Timing  snapshot.Timing
	Found   bool
}

// GetAtRequest fetches an object's snapshot as of a point in time.
type GetAtRequest struct {
	Kind          codec.Kind
	ID            int64
	AtTimestampMs int64
}

func (GetAtRequest) isRequest() {}

// AtResult is GetAtRequest's reply.
type AtResult struct {
	Row    codec.Row
	Extras json.RawMessage
	Timing snapshot.Timing
	Found  bool
}

// ListLatestByParentRequest lists a parent's current (possibly deleted)
// children, e.g. a server's channel ids.
type ListLatestByParentRequest struct {
	Kind         codec.Kind
	ParentColumn string
	ParentID     int64
}

func (ListLatestByParentRequest) isRequest() {}

// SyncMembersRequest reconciles a guild's member roster against a full
// REQUEST_GUILD_MEMBERS response (spec.md §4.2 member specifics).
type SyncMembersRequest struct {
	GuildID        int64
	PresentUserIDs []int64
	Timing         snapshot.Timing
}

func (SyncMembersRequest) isRequest() {}

// Specialized requests.
//
// Message, member, reaction, attachment, webhook-user, sticker and search
// operations each have their own table shape or extra precondition that
// the five generic requests above can't express (spec.md §4.2's
// "special rules" per kind) — every one of them gets its own request type
// instead of being shoehorned into AddSnapshotRequest with an invalid Kind.

// AddMessageSnapshotRequest records an observation of a message.
type AddMessageSnapshotRequest struct {
	ID             int64
	Timing         snapshot.Timing
	ChannelID      int64
	ThreadParentID *int64
	Row            codec.Row
	Extras         json.RawMessage
	FTSContent     string
}

func (AddMessageSnapshotRequest) isRequest() {}

// GetLatestMessageRequest fetches a message's current snapshot, expanding
// its compressed message_reference channel id against channelID.
type GetLatestMessageRequest struct {
	ID             int64
	ChannelID      int64
	ThreadParentID *int64
}

func (GetLatestMessageRequest) isRequest() {}

// MarkMessageDeletedRequest records a message's deletion timing and drops
// it from the search index.
type MarkMessageDeletedRequest struct {
	ID     int64
	Timing snapshot.Timing
}

func (MarkMessageDeletedRequest) isRequest() {}

// ListMessagesByChannelRequest lists every message id snapshotted in
// channelID, for backfill gap detection.
type ListMessagesByChannelRequest struct {
	ChannelID int64
}

func (ListMessagesByChannelRequest) isRequest() {}

// AddMemberSnapshotRequest records an observation of a member object.
type AddMemberSnapshotRequest struct {
	GuildID int64
	UserID  int64
	Timing  snapshot.Timing
	Row     codec.Row
	Extras  json.RawMessage
	Partial map[string]bool
}

func (AddMemberSnapshotRequest) isRequest() {}

// AddMemberLeaveRequest appends the null-member tombstone row.
type AddMemberLeaveRequest struct {
	GuildID int64
	UserID  int64
	Timing  snapshot.Timing
}

func (AddMemberLeaveRequest) isRequest() {}

// ListGuildMembersRequest returns every present member of a guild.
type ListGuildMembersRequest struct {
	GuildID int64
}

func (ListGuildMembersRequest) isRequest() {}

// AddInitialReactionsRequest bulk-inserts reaction placements gathered from
// a message's reaction-users backfill.
type AddInitialReactionsRequest struct {
	MessageID    int64
	Emoji        any
	Animated     bool
	ReactionType int
	UserIDs      []int64
	Timing       snapshot.Timing
}

func (AddInitialReactionsRequest) isRequest() {}

// AddReactionPlacementRequest records one user reacting to one message with
// one emoji.
type AddReactionPlacementRequest struct {
	MessageID    int64
	Emoji        any
	Animated     bool
	ReactionType int
	UserID       int64
	Timing       snapshot.Timing
}

func (AddReactionPlacementRequest) isRequest() {}

// MarkReactionRemovedRequest closes the matching open placement.
type MarkReactionRemovedRequest struct {
	MessageID    int64
	Emoji        any
	ReactionType int
	UserID       int64
	Timing       snapshot.Timing
}

func (MarkReactionRemovedRequest) isRequest() {}

// MarkReactionsRemovedBulkRequest closes every open placement for a
// message, optionally restricted to one emoji (Emoji == nil clears all).
type MarkReactionsRemovedBulkRequest struct {
	MessageID int64
	Emoji     any
	Timing    snapshot.Timing
}

func (MarkReactionsRemovedBulkRequest) isRequest() {}

// GetReactionHistoryRequest returns every placement for a message.
type GetReactionHistoryRequest struct {
	MessageID int64
}

func (GetReactionHistoryRequest) isRequest() {}

// AddAttachmentRequest inserts an attachment row if it doesn't already
// exist.
type AddAttachmentRequest struct {
	ID        int64
	MessageID int64
	Row       codec.Row
	Extras    json.RawMessage
}

func (AddAttachmentRequest) isRequest() {}

// ListAttachmentsByMessageRequest returns attachment ids belonging to a
// message.
type ListAttachmentsByMessageRequest struct {
	MessageID int64
}

func (ListAttachmentsByMessageRequest) isRequest() {}

// LookupOrCreateWebhookUserRequest resolves the synthetic user id for a
// webhook message's apparent author.
type LookupOrCreateWebhookUserRequest struct {
	WebhookID  int64
	Username   string
	AvatarHash *string
}

func (LookupOrCreateWebhookUserRequest) isRequest() {}

// UpsertStickerRequest records the current state of a sticker.
type UpsertStickerRequest struct {
	ID       int64
	ServerID int64
	Row      codec.Row
	Extras   json.RawMessage
}

func (UpsertStickerRequest) isRequest() {}

// ListStickersByServerRequest returns sticker ids belonging to a server.
type ListStickersByServerRequest struct {
	ServerID int64
}

func (ListStickersByServerRequest) isRequest() {}

// SearchMessagesRequest runs a full-text query scoped to a channel.
type SearchMessagesRequest struct {
	ChannelID int64
	Query     string
	Limit     int
}

func (SearchMessagesRequest) isRequest() {}

// Submit dispatches req on the worker goroutine and returns its typed
// reply. Each case below corresponds 1:1 to one of the Request variants.
func (b *Bus) Submit(ctx context.Context, req Request) (any, error) {
	type result struct {
		val any
		err error
	}
	reply := make(chan result, 1)
	b.cmds <- func(db *sql.DB) {
		val, err := b.dispatch(ctx, req)
		reply <- result{val, err}
	}
	select {
	case r := <-reply:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bus) dispatch(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case AddSnapshotRequest:
		if !r.Kind.Versioned() {
			return nil, fmt.Errorf("reqbus: %w: %q", errUnversionedKind, r.Kind)
		}
		spec := snapshot.SpecFor(r.Kind)
		return b.engine.AddSnapshot(ctx, spec, r.ID, r.Timing, r.Row, r.Extras, r.Partial)

	case MarkDeletedRequest:
		if !r.Kind.Versioned() {
			return nil, fmt.Errorf("reqbus: %w: %q", errUnversionedKind, r.Kind)
		}
		spec := snapshot.SpecFor(r.Kind)
		changed, err := b.engine.MarkDeleted(ctx, spec, r.ID, r.Timing)
		return changed, err

	case GetLatestRequest:
		if !r.Kind.Versioned() {
			return nil, fmt.Errorf("reqbus: %w: %q", errUnversionedKind, r.Kind)
		}
		spec := snapshot.SpecFor(r.Kind)
		row, extras, deleted, timing, found, err := b.engine.GetLatest(ctx, spec, r.ID)
		if err != nil {
			return nil, err
		}
		return LatestResult{Row: row, Extras: extras, Deleted: deleted, Timing: timing, Found: found}, nil

	case GetAtRequest:
		if !r.Kind.Versioned() {
			return nil, fmt.Errorf("reqbus: %w: %q", errUnversionedKind, r.Kind)
		}
		spec := snapshot.SpecFor(r.Kind)
		row, extras, timing, found, err := b.engine.GetAt(ctx, spec, r.ID, r.AtTimestampMs)
		if err != nil {
			return nil, err
		}
		return AtResult{Row: row, Extras: extras, Timing: timing, Found: found}, nil

	case ListLatestByParentRequest:
		if !r.Kind.Versioned() {
			return nil, fmt.Errorf("reqbus: %w: %q", errUnversionedKind, r.Kind)
		}
		spec := snapshot.SpecFor(r.Kind)
		return b.engine.ListLatestByParent(ctx, spec, r.ParentColumn, r.ParentID)

	case SyncMembersRequest:
		return b.engine.SyncMembers(ctx, r.GuildID, r.PresentUserIDs, r.Timing)

	case AddMessageSnapshotRequest:
		return b.engine.AddMessageSnapshot(ctx, r.ID, r.Timing, r.ChannelID, r.ThreadParentID, r.Row, r.Extras, r.FTSContent)

	case GetLatestMessageRequest:
		row, extras, deleted, timing, found, err := b.engine.GetLatestMessage(ctx, r.ID, r.ChannelID, r.ThreadParentID)
		if err != nil {
			return nil, err
		}
		return LatestResult{Row: row, Extras: extras, Deleted: deleted, Timing: timing, Found: found}, nil

	case MarkMessageDeletedRequest:
		return b.engine.MarkMessageDeleted(ctx, r.ID, r.Timing)

	case ListMessagesByChannelRequest:
		return b.engine.ListMessagesByChannel(ctx, r.ChannelID)

	case AddMemberSnapshotRequest:
		return b.engine.AddMemberSnapshot(ctx, r.GuildID, r.UserID, r.Timing, r.Row, r.Extras, r.Partial)

	case AddMemberLeaveRequest:
		return b.engine.AddMemberLeave(ctx, r.GuildID, r.UserID, r.Timing)

	case ListGuildMembersRequest:
		return b.engine.ListGuildMembers(ctx, r.GuildID)

	case AddInitialReactionsRequest:
		return nil, b.engine.AddInitialReactions(ctx, r.MessageID, r.Emoji, r.Animated, r.ReactionType, r.UserIDs, r.Timing)

	case AddReactionPlacementRequest:
		return b.engine.AddReactionPlacement(ctx, r.MessageID, r.Emoji, r.Animated, r.ReactionType, r.UserID, r.Timing)

	case MarkReactionRemovedRequest:
		return b.engine.MarkReactionAsRemoved(ctx, r.MessageID, r.Emoji, r.ReactionType, r.UserID, r.Timing)

	case MarkReactionsRemovedBulkRequest:
		return b.engine.MarkReactionsRemovedBulk(ctx, r.MessageID, r.Emoji, r.Timing)

	case GetReactionHistoryRequest:
		return b.engine.GetReactionHistory(ctx, r.MessageID)

	case AddAttachmentRequest:
		return nil, b.engine.AddAttachment(ctx, r.ID, r.MessageID, r.Row, r.Extras)

	case ListAttachmentsByMessageRequest:
		return b.engine.ListAttachmentsByMessage(ctx, r.MessageID)

	case LookupOrCreateWebhookUserRequest:
		return b.engine.LookupOrCreateWebhookUser(ctx, r.WebhookID, r.Username, r.AvatarHash)

	case UpsertStickerRequest:
		return nil, b.engine.UpsertSticker(ctx, r.ID, r.ServerID, r.Row, r.Extras)

	case ListStickersByServerRequest:
		return b.engine.ListStickersByServer(ctx, r.ServerID)

	case SearchMessagesRequest:
		return b.engine.SearchMessages(ctx, r.ChannelID, r.Query, r.Limit)

	default:
		return nil, fmt.Errorf("reqbus: unknown request type %T", req)
	}
}
