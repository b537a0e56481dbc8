package snapshot

import (
	"context"
	"encoding/json"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var threadSpec = SpecFor(codec.KindThread)

func (e *Engine) AddThreadSnapshot(ctx context.Context, id int64, timing Timing, row codec.Row, extras json.RawMessage) (AddResult, error) {
	return e.AddSnapshot(ctx, threadSpec, id, timing, row, extras, nil)
}

func (e *Engine) GetLatestThread(ctx context.Context, id int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	return e.GetLatest(ctx, threadSpec, id)
}

func (e *Engine) MarkThreadDeleted(ctx context.Context, id int64, timing Timing) (bool, error) {
	return e.MarkDeleted(ctx, threadSpec, id, timing)
}

// ListThreadsByParent returns every thread snapshotted under parent channel
// parentID.
func (e *Engine) ListThreadsByParent(ctx context.Context, parentID int64) ([]int64, error) {
	return e.ListLatestByParent(ctx, threadSpec, "parent_id", parentID)
}
