package codec

// Kind identifies one of the object kinds the snapshot engine tracks.
// It doubles as the table-name prefix ("latest_<kind>_snapshots") and as
// the key into the Schemas registry.
type Kind string

const (
	KindUser        Kind = "user"
	KindServer      Kind = "server"
	KindRole        Kind = "role"
	KindMember      Kind = "member"
	KindChannel     Kind = "channel"
	KindThread      Kind = "thread"
	KindForumTag    Kind = "forum_tag"
	KindMessage     Kind = "message"
	KindAttachment  Kind = "attachment"
	KindServerEmoji Kind = "server_emoji"
	KindSticker     Kind = "sticker"
)

// VersionedKinds lists, in a fixed order, the kinds that get a
// latest/previous snapshot table pair. Member, attachment and sticker each
// have their own single-table shape instead and so never name a valid
// SpecFor table. This is the single source of truth for "is this kind
// generically versioned" — internal/schema ranges over it to install the
// table pairs, and Versioned below is just a membership test against it.
var VersionedKinds = []Kind{
	KindUser,
	KindServer,
	KindRole,
	KindChannel,
	KindThread,
	KindForumTag,
	KindMessage,
	KindServerEmoji,
}

var versionedKindSet = func() map[Kind]bool {
	set := make(map[Kind]bool, len(VersionedKinds))
	for _, k := range VersionedKinds {
		set[k] = true
	}
	return set
}()

// Versioned reports whether k is one of the eight generically-versioned
// kinds that AddSnapshotRequest/MarkDeletedRequest/GetLatestRequest/
// GetAtRequest/ListLatestByParentRequest may legally name.
func (k Kind) Versioned() bool {
	return versionedKindSet[k]
}
