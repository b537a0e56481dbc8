package snapshot

import (
	"context"
	"encoding/json"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var forumTagSpec = SpecFor(codec.KindForumTag)

func (e *Engine) AddForumTagSnapshot(ctx context.Context, id int64, timing Timing, row codec.Row, extras json.RawMessage) (AddResult, error) {
	return e.AddSnapshot(ctx, forumTagSpec, id, timing, row, extras, nil)
}

func (e *Engine) GetLatestForumTag(ctx context.Context, id int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	return e.GetLatest(ctx, forumTagSpec, id)
}
