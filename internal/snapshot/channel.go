package snapshot

import (
	"context"
	"encoding/json"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var channelSpec = SpecFor(codec.KindChannel)

func (e *Engine) AddChannelSnapshot(ctx context.Context, id int64, timing Timing, row codec.Row, extras json.RawMessage) (AddResult, error) {
	return e.AddSnapshot(ctx, channelSpec, id, timing, row, extras, nil)
}

func (e *Engine) GetLatestChannel(ctx context.Context, id int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	return e.GetLatest(ctx, channelSpec, id)
}

func (e *Engine) MarkChannelDeleted(ctx context.Context, id int64, timing Timing) (bool, error) {
	return e.MarkDeleted(ctx, channelSpec, id, timing)
}

// ListChannelsByParent returns the channels (categories' children) whose
// parent_id equals parentID.
func (e *Engine) ListChannelsByParent(ctx context.Context, parentID int64) ([]int64, error) {
	return e.ListLatestByParent(ctx, channelSpec, "parent_id", parentID)
}
