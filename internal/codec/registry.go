package codec

// Schemas is the static, per-kind field declaration table described in
// spec.md §4.1. It is const Go data: a real code generator could emit it
// from a richer IDL, but with eleven stable object kinds hand-written
// literals are the better fit (see DESIGN.md).
var Schemas = map[Kind][]FieldSchema{
	KindUser: {
		{JSONKey: "username", Column: "username", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "discriminator", Column: "discriminator", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "global_name", Column: "global_name", Kind: FieldScalar, Tag: TagString, Null: Null},
		{JSONKey: "avatar", Column: "avatar", Kind: FieldScalar, Tag: TagImageHash, Null: Null},
		{JSONKey: "bot", Column: "bot", Kind: FieldScalar, Tag: TagBool, Null: Absent, Immutable: true},
		{JSONKey: "system", Column: "system", Kind: FieldScalar, Tag: TagBool, Null: Absent, Immutable: true},
		{JSONKey: "public_flags", Column: "public_flags", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
	},

	KindServer: {
		{JSONKey: "name", Column: "name", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "icon", Column: "icon", Kind: FieldScalar, Tag: TagImageHash, Null: Null},
		{JSONKey: "description", Column: "description", Kind: FieldScalar, Tag: TagString, Null: Null},
		{JSONKey: "owner_id", Column: "owner_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Absent},
		{JSONKey: "premium_tier", Column: "premium_tier", Kind: FieldScalar, Tag: TagIntStrict, Null: Absent},
		{JSONKey: "preferred_locale", Column: "preferred_locale", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "features", Column: "", Kind: FieldExtra, Null: EmptyArray},
	},

	KindRole: {
		{JSONKey: "name", Column: "name", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "color", Column: "color", Kind: FieldScalar, Tag: TagIntStrict, Null: Absent},
		{JSONKey: "hoist", Column: "hoist", Kind: FieldScalar, Tag: TagBool, Null: Absent},
		{JSONKey: "position", Column: "position", Kind: FieldScalar, Tag: TagIntStrict, Null: Absent},
		{JSONKey: "permissions", Column: "permissions", Kind: FieldScalar, Tag: TagBigIntString, Null: Absent},
		{JSONKey: "managed", Column: "managed", Kind: FieldScalar, Tag: TagBool, Null: Absent, Immutable: true},
		{JSONKey: "mentionable", Column: "mentionable", Kind: FieldScalar, Tag: TagBool, Null: Absent},
	},

	// Member uses a composite (guild_id, user_id) key, not an id column;
	// the "member left" tombstone is represented by the absent joined_at
	// (spec.md §3/§4.2). Voice-only fields use NullPolicy Null; Encode
	// writes NULL for such a field whether it is absent or explicitly null,
	// so the two cases are not told apart in the row.
	KindMember: {
		{JSONKey: "nick", Column: "nick", Kind: FieldScalar, Tag: TagString, Null: Null},
		{JSONKey: "avatar", Column: "avatar", Kind: FieldScalar, Tag: TagImageHash, Null: Null},
		{JSONKey: "roles", Column: "roles", Kind: FieldScalar, Tag: TagIDArray, Null: EmptyArray},
		{JSONKey: "joined_at", Column: "joined_at", Kind: FieldScalar, Tag: TagTimestamp, Null: Null},
		{JSONKey: "premium_since", Column: "premium_since", Kind: FieldScalar, Tag: TagTimestamp, Null: Null},
		{JSONKey: "deaf", Column: "deaf", Kind: FieldScalar, Tag: TagBool, Null: Null},
		{JSONKey: "mute", Column: "mute", Kind: FieldScalar, Tag: TagBool, Null: Null},
		{JSONKey: "pending", Column: "pending", Kind: FieldScalar, Tag: TagBool, Null: Null},
	},

	KindChannel: {
		{JSONKey: "name", Column: "name", Kind: FieldScalar, Tag: TagString, Null: Null},
		{JSONKey: "type", Column: "type", Kind: FieldScalar, Tag: TagIntStrict, Null: Absent, Immutable: true},
		{JSONKey: "topic", Column: "topic", Kind: FieldScalar, Tag: TagString, Null: Null},
		{JSONKey: "nsfw", Column: "nsfw", Kind: FieldScalar, Tag: TagBool, Null: Absent},
		{JSONKey: "position", Column: "position", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
		{JSONKey: "parent_id", Column: "parent_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Null},
		{JSONKey: "permission_overwrites", Column: "permission_overwrites", Kind: FieldScalar, Tag: TagOverwrites, Null: EmptyArray},
		{JSONKey: "rate_limit_per_user", Column: "rate_limit_per_user", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
	},

	KindThread: {
		{JSONKey: "name", Column: "name", Kind: FieldScalar, Tag: TagString, Null: Null},
		{JSONKey: "parent_id", Column: "parent_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Absent, Immutable: true},
		{JSONKey: "owner_id", Column: "owner_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Absent, Immutable: true},
		{JSONKey: "archived", Column: "archived", Kind: FieldScalar, Tag: TagBool, Null: Absent},
		{JSONKey: "locked", Column: "locked", Kind: FieldScalar, Tag: TagBool, Null: Absent},
		{JSONKey: "auto_archive_duration", Column: "auto_archive_duration", Kind: FieldScalar, Tag: TagIntStrict, Null: Absent},
		{JSONKey: "message_count", Column: "message_count", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
		{JSONKey: "member_count", Column: "member_count", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
	},

	KindForumTag: {
		{JSONKey: "name", Column: "name", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "moderated", Column: "moderated", Kind: FieldScalar, Tag: TagBool, Null: Absent},
		{JSONKey: "emoji", Column: "emoji", Kind: FieldScalar, Tag: TagEmoji, Null: Null},
	},

	KindMessage: {
		{JSONKey: "channel_id", Column: "channel_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Absent, Immutable: true},
		{JSONKey: "author_id", Column: "author_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Absent, Immutable: true},
		{JSONKey: "webhook_id", Column: "webhook_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Null, Immutable: true},
		{JSONKey: "tts", Column: "tts", Kind: FieldScalar, Tag: TagBool, Null: Absent, Immutable: true},
		{JSONKey: "content", Column: "content", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "pinned", Column: "pinned", Kind: FieldScalar, Tag: TagBool, Null: Absent},
		{JSONKey: "flags", Column: "flags", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
		{JSONKey: "embeds", Column: "", Kind: FieldExtra, Null: EmptyArray},
		{JSONKey: "mentions", Column: "", Kind: FieldExtra, Null: EmptyArray},
		{JSONKey: "message_reference", Column: "message_reference", Kind: FieldSub, Null: Null, Sub: []FieldSchema{
			{JSONKey: "message_id", Column: "message_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Null},
			// channel_id/guild_id are compressed per spec.md §4.2: 0 means
			// "same channel as this message", 1 means "parent of this
			// thread", else the explicit id. The compression/expansion is
			// performed by the snapshot engine, not the codec - here they
			// are plain nullable 64-bit columns.
			{JSONKey: "channel_id", Column: "channel_id", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
			{JSONKey: "guild_id", Column: "guild_id", Kind: FieldScalar, Tag: TagIntNullable, Null: Null},
		}},
	},

	// Attachments are immutable and never versioned (spec.md §3); every
	// declared column is immutable.
	KindAttachment: {
		{JSONKey: "filename", Column: "filename", Kind: FieldScalar, Tag: TagString, Null: Absent, Immutable: true},
		{JSONKey: "size", Column: "size", Kind: FieldScalar, Tag: TagIntStrict, Null: Absent, Immutable: true},
		{JSONKey: "url", Column: "url", Kind: FieldScalar, Tag: TagString, Null: Absent, Immutable: true},
		{JSONKey: "content_type", Column: "content_type", Kind: FieldScalar, Tag: TagString, Null: Null, Immutable: true},
		{JSONKey: "width", Column: "width", Kind: FieldScalar, Tag: TagIntNullable, Null: Null, Immutable: true},
		{JSONKey: "height", Column: "height", Kind: FieldScalar, Tag: TagIntNullable, Null: Null, Immutable: true},
	},

	KindServerEmoji: {
		{JSONKey: "name", Column: "name", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "animated", Column: "animated", Kind: FieldScalar, Tag: TagBool, Null: Absent, Immutable: true},
		{JSONKey: "managed", Column: "managed", Kind: FieldScalar, Tag: TagBool, Null: Absent, Immutable: true},
		{JSONKey: "available", Column: "available", Kind: FieldScalar, Tag: TagBool, Null: Absent},
		{JSONKey: "roles", Column: "roles", Kind: FieldScalar, Tag: TagIDArray, Null: EmptyArray},
		// uploader id: per spec.md §4.2, unknown (null) on either side is
		// tolerated; if both sides name an uploader they must match.
		{JSONKey: "user_id", Column: "user_id", Kind: FieldScalar, Tag: TagBigIntString, Null: Null, Immutable: true},
	},

	KindSticker: {
		{JSONKey: "name", Column: "name", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "description", Column: "description", Kind: FieldScalar, Tag: TagString, Null: Null},
		{JSONKey: "tags", Column: "tags", Kind: FieldScalar, Tag: TagString, Null: Absent},
		{JSONKey: "format_type", Column: "format_type", Kind: FieldScalar, Tag: TagIntStrict, Null: Absent, Immutable: true},
		{JSONKey: "available", Column: "available", Kind: FieldScalar, Tag: TagBool, Null: Absent},
	},
}
