package snapshot

import (
	"context"
	"encoding/json"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var emojiSpec = SpecFor(codec.KindServerEmoji)

func init() {
	// spec.md §4.2: an emoji's uploader id is tolerated as one-sided-unknown
	// — null on either side is accepted; if both sides name an uploader
	// they must agree.
	emojiSpec.CompareImmutable = map[string]func(old, new any) (bool, error){
		"user_id": func(old, new any) (bool, error) {
			if old == nil || new == nil {
				return true, nil
			}
			return compareColumnValues(old, new), nil
		},
	}
}

func (e *Engine) AddServerEmojiSnapshot(ctx context.Context, id int64, timing Timing, row codec.Row, extras json.RawMessage) (AddResult, error) {
	return e.AddSnapshot(ctx, emojiSpec, id, timing, row, extras, nil)
}

func (e *Engine) GetLatestServerEmoji(ctx context.Context, id int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	return e.GetLatest(ctx, emojiSpec, id)
}

func (e *Engine) MarkServerEmojiDeleted(ctx context.Context, id int64, timing Timing) (bool, error) {
	return e.MarkDeleted(ctx, emojiSpec, id, timing)
}
