package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

// ReactionPlacement is one row of reaction history, as returned by
// GetReactionHistory (spec.md §4.2 get_reaction_history).
type ReactionPlacement struct {
	MessageID    int64
	Emoji        map[string]any
	ReactionType int
	UserID       int64
	Start        Timing
	End          *Timing
}

// registerEmoji upserts the emoji side table entry for a custom emoji
// (spec.md §3 Reaction: "Emoji is either an integer custom-emoji id...or a
// short unicode string"). Unicode emoji need no side table row.
func (e *Engine) registerEmoji(ctx context.Context, emojiID any, name string, animated bool) error {
	if emojiID == nil {
		return nil
	}
	_, err := e.DB.ExecContext(ctx,
		`INSERT INTO reaction_emojis (id, name, animated) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, animated = excluded.animated`,
		emojiID, name, animated)
	if err != nil {
		return fmt.Errorf("snapshot: register emoji: %w", err)
	}
	return nil
}

// AddInitialReactions bulk-inserts reaction placements gathered from a
// message's reaction-users backfill (spec.md §4.2 add_initial_reactions):
// every user starts an open placement at ts; each user is first recorded
// as a user snapshot by the caller before this is invoked.
func (e *Engine) AddInitialReactions(ctx context.Context, messageID int64, emoji any, animated bool, reactionType int, userIDs []int64, ts Timing) error {
	emojiID, emojiName, err := codec.EncodeEmojiRef(emoji)
	if err != nil {
		return fmt.Errorf("snapshot: add_initial_reactions emoji: %w", err)
	}
	if err := e.registerEmoji(ctx, emojiID, toStr(emojiName), animated); err != nil {
		return err
	}

	for _, userID := range userIDs {
		_, err := e.DB.ExecContext(ctx,
			`INSERT INTO reactions (message_id, emoji_id, emoji_name, reaction_type, user_id, start, end) VALUES (?, ?, ?, ?, ?, ?, NULL)`,
			messageID, emojiID, emojiName, reactionType, userID, int64(ts))
		if err != nil {
			return fmt.Errorf("snapshot: add_initial_reactions insert: %w", err)
		}
	}
	return nil
}

// AddReactionPlacement records one user reacting to one message with one
// emoji (spec.md §4.2 add_reaction_placement). The caller must have
// already verified the message and user exist; ErrMissingMessage/
// ErrMissingUser are returned otherwise.
func (e *Engine) AddReactionPlacement(ctx context.Context, messageID int64, emoji any, animated bool, reactionType int, userID int64, ts Timing) (ReactionResult, error) {
	var exists int
	err := e.DB.QueryRowContext(ctx, `SELECT 1 FROM latest_message_snapshots WHERE id = ?`, messageID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, ErrMissingMessage
	}
	if err != nil {
		return 0, fmt.Errorf("snapshot: check message exists: %w", err)
	}

	err = e.DB.QueryRowContext(ctx, `SELECT 1 FROM latest_user_snapshots WHERE id = ?`, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, ErrMissingUser
	}
	if err != nil {
		return 0, fmt.Errorf("snapshot: check user exists: %w", err)
	}

	emojiID, emojiName, err := codec.EncodeEmojiRef(emoji)
	if err != nil {
		return 0, fmt.Errorf("snapshot: add_reaction_placement emoji: %w", err)
	}
	if err := e.registerEmoji(ctx, emojiID, toStr(emojiName), animated); err != nil {
		return 0, err
	}

	err = e.DB.QueryRowContext(ctx,
		`SELECT 1 FROM reactions WHERE message_id = ? AND emoji_id IS ? AND emoji_name IS ? AND reaction_type = ? AND user_id = ? AND end IS NULL`,
		messageID, emojiID, emojiName, reactionType, userID).Scan(&exists)
	if err == nil {
		return AlreadyExists, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("snapshot: check existing placement: %w", err)
	}

	_, err = e.DB.ExecContext(ctx,
		`INSERT INTO reactions (message_id, emoji_id, emoji_name, reaction_type, user_id, start, end) VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		messageID, emojiID, emojiName, reactionType, userID, int64(ts))
	if err != nil {
		return 0, fmt.Errorf("snapshot: insert reaction placement: %w", err)
	}
	return AddedReaction, nil
}

// MarkReactionAsRemoved closes the matching open placement (spec.md §4.2
// mark_reaction_removed). Idempotent: a second call reports NoChange.
func (e *Engine) MarkReactionAsRemoved(ctx context.Context, messageID int64, emoji any, reactionType int, userID int64, ts Timing) (ReactionResult, error) {
	emojiID, emojiName, err := codec.EncodeEmojiRef(emoji)
	if err != nil {
		return 0, fmt.Errorf("snapshot: mark_reaction_removed emoji: %w", err)
	}

	res, err := e.DB.ExecContext(ctx,
		`UPDATE reactions SET end = ? WHERE message_id = ? AND emoji_id IS ? AND emoji_name IS ? AND reaction_type = ? AND user_id = ? AND end IS NULL`,
		int64(ts), messageID, emojiID, emojiName, reactionType, userID)
	if err != nil {
		return 0, fmt.Errorf("snapshot: mark reaction removed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return NoChange, nil
	}
	return Removed, nil
}

// MarkReactionsRemovedBulk closes every open placement for messageID,
// optionally restricted to one emoji (spec.md §4.2
// mark_reactions_removed_bulk). emoji == nil clears every emoji.
func (e *Engine) MarkReactionsRemovedBulk(ctx context.Context, messageID int64, emoji any, ts Timing) (int, error) {
	var res sql.Result
	var err error
	if emoji == nil {
		res, err = e.DB.ExecContext(ctx,
			`UPDATE reactions SET end = ? WHERE message_id = ? AND end IS NULL`, int64(ts), messageID)
	} else {
		emojiID, emojiName, encErr := codec.EncodeEmojiRef(emoji)
		if encErr != nil {
			return 0, fmt.Errorf("snapshot: mark_reactions_removed_bulk emoji: %w", encErr)
		}
		res, err = e.DB.ExecContext(ctx,
			`UPDATE reactions SET end = ? WHERE message_id = ? AND emoji_id IS ? AND emoji_name IS ? AND end IS NULL`,
			int64(ts), messageID, emojiID, emojiName)
	}
	if err != nil {
		return 0, fmt.Errorf("snapshot: mark reactions removed bulk: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// GetReactionHistory returns every placement for messageID, ordered
// deterministically by (emoji_id, type, user_id, start) per spec.md §4.2.
func (e *Engine) GetReactionHistory(ctx context.Context, messageID int64) ([]ReactionPlacement, error) {
	rows, err := e.DB.QueryContext(ctx,
		`SELECT emoji_id, emoji_name, reaction_type, user_id, start, end FROM reactions
		 WHERE message_id = ?
		 ORDER BY emoji_id IS NULL, emoji_id, emoji_name, reaction_type, user_id, start`,
		messageID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: get reaction history: %w", err)
	}
	defer rows.Close()

	var out []ReactionPlacement
	for rows.Next() {
		var emojiID, emojiName sql.NullString
		var reactionType int
		var userID, start int64
		var end sql.NullInt64
		if err := rows.Scan(&emojiID, &emojiName, &reactionType, &userID, &start, &end); err != nil {
			return nil, err
		}
		var idVal, nameVal any
		if emojiID.Valid {
			idVal = emojiID.String
		}
		if emojiName.Valid {
			nameVal = emojiName.String
		}
		p := ReactionPlacement{
			MessageID:    messageID,
			Emoji:        codec.DecodeEmojiRef(idVal, nameVal),
			ReactionType: reactionType,
			UserID:       userID,
			Start:        Timing(start),
		}
		if end.Valid {
			t := Timing(end.Int64)
			p.End = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func toStr(v any) string {
	s, _ := v.(string)
	return s
}
