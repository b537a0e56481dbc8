package snapshot_test

import (
	"context"
	"testing"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
	"github.com/duarte-pardal/discord-archiver/internal/snapshot"
)

// TestScenarioS1FirstGuildSnapshot mirrors spec.md §8 S1.
func TestScenarioS1FirstGuildSnapshot(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	const guildID = int64(1367557310418784356)
	row := codec.Row{
		"name": "Archiver Test Server", "icon": nil, "description": nil,
		"owner_id": int64(1), "premium_tier": int64(0), "preferred_locale": "en-US",
	}
	timing := snapshot.NewTiming(1000, false)

	result, err := e.AddServerSnapshot(ctx, guildID, timing, row, nil)
	if err != nil {
		t.Fatalf("AddServerSnapshot: %v", err)
	}
	if result != snapshot.AddedFirstSnapshot {
		t.Fatalf("result = %v, want AddedFirstSnapshot", result)
	}

	result, err = e.AddServerSnapshot(ctx, guildID, snapshot.NewTiming(2000, false), row, nil)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if result != snapshot.SameAsLatest {
		t.Fatalf("re-add result = %v, want SameAsLatest", result)
	}
}

// TestScenarioS2MemberLeftAndRejoined mirrors spec.md §8 S2.
func TestScenarioS2MemberLeftAndRejoined(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	const guildID = int64(1367557310418784356)
	const userID = int64(1367556342314827907)

	memberRow := codec.Row{
		"nick": nil, "avatar": nil, "roles": []byte{}, "joined_at": int64(1000),
		"premium_since": nil, "deaf": false, "mute": false, "pending": false,
	}

	result, err := e.AddMemberSnapshot(ctx, guildID, userID, snapshot.NewTiming(1000, true), memberRow, nil, nil)
	if err != nil {
		t.Fatalf("AddMemberSnapshot: %v", err)
	}
	if result != snapshot.AddedFirstSnapshot {
		t.Fatalf("result = %v, want AddedFirstSnapshot", result)
	}

	leaveTiming := snapshot.NewTiming(3600_000, true)
	result, err = e.AddMemberLeave(ctx, guildID, userID, leaveTiming)
	if err != nil {
		t.Fatalf("AddMemberLeave: %v", err)
	}
	if result != snapshot.AddedAnotherSnapshot {
		t.Fatalf("leave result = %v, want AddedAnotherSnapshot", result)
	}

	result, err = e.AddMemberLeave(ctx, guildID, userID, snapshot.NewTiming(3600_001, true))
	if err != nil {
		t.Fatalf("repeat AddMemberLeave: %v", err)
	}
	if result != snapshot.SameAsLatest {
		t.Fatalf("repeat leave result = %v, want SameAsLatest", result)
	}

	rejoinTiming := snapshot.NewTiming(7200_000, true)
	result, err = e.AddMemberSnapshot(ctx, guildID, userID, rejoinTiming, memberRow, nil, nil)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if result != snapshot.AddedAnotherSnapshot {
		t.Fatalf("rejoin result = %v, want AddedAnotherSnapshot", result)
	}

	members, err := e.ListGuildMembers(ctx, guildID)
	if err != nil {
		t.Fatalf("ListGuildMembers: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("len(members) = %d, want 1", len(members))
	}
	if members[0].UserID != userID {
		t.Errorf("member id = %d, want %d", members[0].UserID, userID)
	}
}

// mustAddChannel records a minimal channel snapshot so message tests can
// satisfy AddMessageSnapshot's "channel must already be recorded"
// precondition without every scenario spelling out a full channel row.
func mustAddChannel(t *testing.T, e *snapshot.Engine, ctx context.Context, id int64) {
	t.Helper()
	row := codec.Row{
		"name": "test-channel", "type": int64(0), "topic": nil, "nsfw": false,
		"position": nil, "parent_id": nil, "permission_overwrites": []byte("[]"), "rate_limit_per_user": nil,
	}
	if _, err := e.AddChannelSnapshot(ctx, id, snapshot.NewTiming(1, true), row, nil); err != nil {
		t.Fatalf("mustAddChannel(%d): %v", id, err)
	}
}

// TestScenarioS3ReplyWithInlineReferencedWebhookMessage mirrors spec.md §8 S3.
func TestScenarioS3ReplyWithInlineReferencedWebhookMessage(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	const channelID = int64(555)
	const webhookID = int64(777)
	mustAddChannel(t, e, ctx, channelID)

	// the referenced message is attributed to a synthetic webhook-user id,
	// per spec.md §4.2 "Messages — special rules".
	authorID, err := e.LookupOrCreateWebhookUser(ctx, webhookID, "NotifyBot", nil)
	if err != nil {
		t.Fatalf("LookupOrCreateWebhookUser: %v", err)
	}
	if authorID >= 0 {
		t.Fatalf("synthetic webhook user id = %d, want negative", authorID)
	}

	refRow := codec.Row{
		"channel_id": channelID, "author_id": authorID, "webhook_id": webhookID, "tts": false,
		"content": "build passed", "pinned": false, "flags": nil,
	}
	if _, err := e.AddMessageSnapshot(ctx, 900, snapshot.NewTiming(1000, true), channelID, nil, refRow, nil, "build passed"); err != nil {
		t.Fatalf("add referenced message: %v", err)
	}

	replyRow := codec.Row{
		"channel_id": channelID, "author_id": int64(42), "webhook_id": nil, "tts": false,
		"content": "thanks!", "pinned": false, "flags": nil,
		"message_reference__message_id": int64(900), "message_reference__channel_id": channelID, "message_reference__guild_id": nil,
	}
	if _, err := e.AddMessageSnapshot(ctx, 901, snapshot.NewTiming(2000, true), channelID, nil, replyRow, nil, "thanks!"); err != nil {
		t.Fatalf("add reply: %v", err)
	}

	reply, _, _, _, found, err := e.GetLatestMessage(ctx, 901, channelID, nil)
	if err != nil || !found {
		t.Fatalf("GetLatestMessage(901): found=%v err=%v", found, err)
	}
	// same-channel compression collapses the literal channel id to 0.
	if reply["message_reference__channel_id"] != channelID {
		t.Errorf("expanded reference channel = %v, want %d", reply["message_reference__channel_id"], channelID)
	}

	referenced, _, _, _, found, err := e.GetLatestMessage(ctx, 900, channelID, nil)
	if err != nil || !found {
		t.Fatalf("GetLatestMessage(900): found=%v err=%v", found, err)
	}
	if referenced["author_id"] != authorID {
		t.Errorf("referenced author = %v, want synthetic id %d", referenced["author_id"], authorID)
	}
}

// TestScenarioS6ReactionLifecycle mirrors spec.md §8 S6.
func TestScenarioS6ReactionLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	const channelID = int64(1)
	const messageID = int64(100)
	const userA = int64(10)
	const userB = int64(20)
	mustAddChannel(t, e, ctx, channelID)

	msgRow := codec.Row{
		"channel_id": channelID, "author_id": userA, "webhook_id": nil, "tts": false,
		"content": "hello", "pinned": false, "flags": nil,
	}
	if _, err := e.AddMessageSnapshot(ctx, messageID, snapshot.NewTiming(500, true), channelID, nil, msgRow, nil, "hello"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	userRow := codec.Row{"username": "a", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	if _, err := e.AddUserSnapshot(ctx, userA, snapshot.NewTiming(400, true), userRow, nil); err != nil {
		t.Fatalf("add userA: %v", err)
	}
	if _, err := e.AddUserSnapshot(ctx, userB, snapshot.NewTiming(400, true), userRow, nil); err != nil {
		t.Fatalf("add userB: %v", err)
	}

	emoji := "👨‍💻"
	if err := e.AddInitialReactions(ctx, messageID, emoji, false, 0, []int64{userA}, snapshot.NewTiming(1000, true)); err != nil {
		t.Fatalf("AddInitialReactions: %v", err)
	}

	result, err := e.AddReactionPlacement(ctx, messageID, emoji, false, 0, userB, snapshot.NewTiming(2000, true))
	if err != nil {
		t.Fatalf("AddReactionPlacement: %v", err)
	}
	if result != snapshot.AddedReaction {
		t.Fatalf("result = %v, want AddedReaction", result)
	}

	result, err = e.AddReactionPlacement(ctx, messageID, emoji, false, 0, userB, snapshot.NewTiming(2100, true))
	if err != nil {
		t.Fatalf("repeat AddReactionPlacement: %v", err)
	}
	if result != snapshot.AlreadyExists {
		t.Fatalf("repeat result = %v, want AlreadyExists", result)
	}

	changed, err := e.MarkReactionAsRemoved(ctx, messageID, emoji, 0, userB, snapshot.NewTiming(3000, true))
	if err != nil {
		t.Fatalf("MarkReactionAsRemoved: %v", err)
	}
	if changed != snapshot.Removed {
		t.Fatalf("MarkReactionAsRemoved = %v, want Removed", changed)
	}

	changed, err = e.MarkReactionAsRemoved(ctx, messageID, emoji, 0, userB, snapshot.NewTiming(3100, true))
	if err != nil {
		t.Fatalf("repeat MarkReactionAsRemoved: %v", err)
	}
	if changed != snapshot.NoChange {
		t.Fatalf("repeat MarkReactionAsRemoved = %v, want NoChange", changed)
	}

	history, err := e.GetReactionHistory(ctx, messageID)
	if err != nil {
		t.Fatalf("GetReactionHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	for _, p := range history {
		if p.UserID == userB && (p.End == nil || p.Start.Timestamp() != 2000) {
			t.Errorf("userB placement = %+v, want start=2000 with end set", p)
		}
		if p.UserID == userA && p.End != nil {
			t.Errorf("userA placement should still be open, got %+v", p)
		}
	}
}

func TestAddMessageSnapshotUnknownChannelRejected(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	row := codec.Row{
		"channel_id": int64(404), "author_id": int64(1), "webhook_id": nil, "tts": false,
		"content": "orphaned", "pinned": false, "flags": nil,
	}
	_, err := e.AddMessageSnapshot(ctx, 1, snapshot.NewTiming(1000, true), 404, nil, row, nil, "orphaned")
	if err != snapshot.ErrMissingChannel {
		t.Fatalf("err = %v, want ErrMissingChannel", err)
	}
}

func TestAddReactionPlacementMissingMessage(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	_, err := e.AddReactionPlacement(ctx, 999, "👍", false, 0, 1, snapshot.NewTiming(1000, true))
	if err != snapshot.ErrMissingMessage {
		t.Fatalf("err = %v, want ErrMissingMessage", err)
	}
}
