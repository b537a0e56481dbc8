// Package gateway defines the event and command shapes exchanged with a
// chat platform's gateway session. The connector itself — opening the
// websocket, handling heartbeats and resume — is an external collaborator
// out of scope (spec.md §1); this package only types what it delivers, in
// thrum's tagged-event-struct style (internal/types/events.go), so the
// upstream event handler (also out of scope) has a concrete shape to parse
// into before calling the snapshot engine.
package gateway

import "encoding/json"

// Opcode is a gateway payload's op field.
type Opcode int

const (
	OpDispatch            Opcode = 0
	OpHeartbeat           Opcode = 1
	OpIdentify            Opcode = 2
	OpPresenceUpdate      Opcode = 3
	OpVoiceStateUpdate    Opcode = 4
	OpResume              Opcode = 6
	OpReconnect           Opcode = 7
	OpRequestGuildMembers Opcode = 8
	OpInvalidSession      Opcode = 9
	OpHello               Opcode = 10
	OpHeartbeatACK        Opcode = 11
)

// Envelope is the outer gateway payload: {op, d, s, t}. Data is left raw
// because its shape depends on Type, resolved by the event handler
// (out of scope) before it reaches the snapshot engine.
type Envelope struct {
	Op       Opcode          `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Type     string          `json:"t,omitempty"`
}

// ReadyEvent is the "READY" dispatch following a successful identify.
type ReadyEvent struct {
	Type        string        `json:"type"` // "READY"
	SessionID   string        `json:"session_id"`
	ResumeGwURL string        `json:"resume_gateway_url"`
	Guilds      []UnavailableGuild `json:"guilds"`
}

// UnavailableGuild is a stub guild reference in the READY payload, filled
// in by a subsequent GuildCreateEvent.
type UnavailableGuild struct {
	ID          string `json:"id"`
	Unavailable bool   `json:"unavailable"`
}

// GuildCreateEvent carries a full guild snapshot, either on initial
// availability or lazy-load after an outage. Channels, Roles, Emojis,
// Stickers and Members arrive inline and are fanned out by the event
// handler into per-kind AddSnapshot calls.
type GuildCreateEvent struct {
	Type     string            `json:"type"` // "GUILD_CREATE"
	Guild    map[string]any    `json:"-"` // decoded guild fields, see codec.KindServer
	Channels []map[string]any `json:"channels"`
	Threads  []map[string]any `json:"threads"`
	Roles    []map[string]any `json:"roles"`
	Emojis   []map[string]any `json:"emojis"`
	Stickers []map[string]any `json:"stickers"`
	Members  []map[string]any `json:"members"` // partial chunk; full sync follows via GuildMembersChunkEvent
}

// GuildUpdateEvent carries a guild's mutable fields after a change.
type GuildUpdateEvent struct {
	Type  string         `json:"type"` // "GUILD_UPDATE"
	Guild map[string]any `json:"-"`
}

// GuildDeleteEvent signals guild removal or outage (Unavailable true means
// outage, not deletion — the event handler must not mark the guild deleted
// in that case).
type GuildDeleteEvent struct {
	Type        string `json:"type"` // "GUILD_DELETE"
	ID          string `json:"id"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// ChannelCreateEvent, ChannelUpdateEvent, ChannelDeleteEvent carry a
// channel's fields verbatim for codec.Encode(codec.KindChannel, ...).
type ChannelCreateEvent struct {
	Type    string         `json:"type"` // "CHANNEL_CREATE"
	Channel map[string]any `json:"-"`
}

type ChannelUpdateEvent struct {
	Type    string         `json:"type"` // "CHANNEL_UPDATE"
	Channel map[string]any `json:"-"`
}

type ChannelDeleteEvent struct {
	Type string `json:"type"` // "CHANNEL_DELETE"
	ID   string `json:"id"`
}

// ThreadCreateEvent, ThreadUpdateEvent, ThreadDeleteEvent mirror the
// channel events for codec.KindThread.
type ThreadCreateEvent struct {
	Type   string         `json:"type"` // "THREAD_CREATE"
	Thread map[string]any `json:"-"`
}

type ThreadUpdateEvent struct {
	Type   string         `json:"type"` // "THREAD_UPDATE"
	Thread map[string]any `json:"-"`
}

type ThreadDeleteEvent struct {
	Type      string `json:"type"` // "THREAD_DELETE"
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
}

// RoleEvent covers GUILD_ROLE_CREATE and GUILD_ROLE_UPDATE, which share a
// payload shape on the wire.
type RoleEvent struct {
	Type    string         `json:"type"` // "GUILD_ROLE_CREATE" or "GUILD_ROLE_UPDATE"
	GuildID string         `json:"guild_id"`
	Role    map[string]any `json:"-"`
}

type RoleDeleteEvent struct {
	Type    string `json:"type"` // "GUILD_ROLE_DELETE"
	GuildID string `json:"guild_id"`
	RoleID  string `json:"role_id"`
}

// MemberEvent covers GUILD_MEMBER_ADD and GUILD_MEMBER_UPDATE.
type MemberEvent struct {
	Type    string         `json:"type"` // "GUILD_MEMBER_ADD" or "GUILD_MEMBER_UPDATE"
	GuildID string         `json:"guild_id"`
	Member  map[string]any `json:"-"`
}

// MemberRemoveEvent signals a member leaving or being removed; the event
// handler records this with snapshot.AddMemberLeave, not MarkDeleted (a
// member has no "deleted" concept, only the null-member tombstone).
type MemberRemoveEvent struct {
	Type    string `json:"type"` // "GUILD_MEMBER_REMOVE"
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

// MembersChunkEvent is one page of a REQUEST_GUILD_MEMBERS response,
// consumed by snapshot.SyncMembers once all pages for a request arrive.
type MembersChunkEvent struct {
	Type       string           `json:"type"` // "GUILD_MEMBERS_CHUNK"
	GuildID    string           `json:"guild_id"`
	Members    []map[string]any `json:"-"`
	ChunkIndex int              `json:"chunk_index"`
	ChunkCount int              `json:"chunk_count"`
	Nonce      string           `json:"nonce,omitempty"`
}

// MessageCreateEvent, MessageUpdateEvent carry a message's fields for
// codec.Encode(codec.KindMessage, ...); webhook-authored messages route
// through snapshot.LookupOrCreateWebhookUser before the author id is known.
type MessageCreateEvent struct {
	Type    string         `json:"type"` // "MESSAGE_CREATE"
	Message map[string]any `json:"-"`
}

type MessageUpdateEvent struct {
	Type    string         `json:"type"` // "MESSAGE_UPDATE"
	Message map[string]any `json:"-"`
}

type MessageDeleteEvent struct {
	Type      string `json:"type"` // "MESSAGE_DELETE"
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// ReactionAddEvent and ReactionRemoveEvent carry one reaction placement or
// removal, consumed by snapshot.AddReactionPlacement /
// snapshot.MarkReactionAsRemoved.
type ReactionAddEvent struct {
	Type      string         `json:"type"` // "MESSAGE_REACTION_ADD"
	MessageID string         `json:"message_id"`
	UserID    string         `json:"user_id"`
	Emoji     map[string]any `json:"emoji"`
	Burst     bool           `json:"burst,omitempty"` // maps to reaction_type
}

type ReactionRemoveEvent struct {
	Type      string         `json:"type"` // "MESSAGE_REACTION_REMOVE"
	MessageID string         `json:"message_id"`
	UserID    string         `json:"user_id"`
	Emoji     map[string]any `json:"emoji"`
	Burst     bool           `json:"burst,omitempty"`
}

// ReactionRemoveAllEvent clears every reaction on a message, consumed by
// snapshot.MarkReactionsRemovedBulk with no emoji filter.
type ReactionRemoveAllEvent struct {
	Type      string `json:"type"` // "MESSAGE_REACTION_REMOVE_ALL"
	MessageID string `json:"message_id"`
}

// ReactionRemoveEmojiEvent clears every user's reaction of one emoji,
// consumed by snapshot.MarkReactionsRemovedBulk filtered to that emoji.
type ReactionRemoveEmojiEvent struct {
	Type      string         `json:"type"` // "MESSAGE_REACTION_REMOVE_EMOJI"
	MessageID string         `json:"message_id"`
	Emoji     map[string]any `json:"emoji"`
}

// EmojisUpdateEvent replaces a guild's full emoji list; the event handler
// diffs it against ListLatestByParent to find additions/removals/renames.
type EmojisUpdateEvent struct {
	Type    string           `json:"type"` // "GUILD_EMOJIS_UPDATE"
	GuildID string           `json:"guild_id"`
	Emojis  []map[string]any `json:"emojis"`
}

// StickersUpdateEvent replaces a guild's full sticker list, consumed via
// repeated snapshot.UpsertSticker calls (stickers are upsert-in-place, not
// versioned — see DESIGN.md).
type StickersUpdateEvent struct {
	Type     string           `json:"type"` // "GUILD_STICKERS_UPDATE"
	GuildID  string           `json:"guild_id"`
	Stickers []map[string]any `json:"stickers"`
}
