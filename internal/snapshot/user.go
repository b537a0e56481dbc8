package snapshot

import (
	"context"
	"encoding/json"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var userSpec = SpecFor(codec.KindUser)

// AddUserSnapshot records an observation of a user object (spec.md §4.1
// user kind). bot and system are immutable; every other field is mutable.
func (e *Engine) AddUserSnapshot(ctx context.Context, id int64, timing Timing, row codec.Row, extras json.RawMessage) (AddResult, error) {
	return e.AddSnapshot(ctx, userSpec, id, timing, row, extras, nil)
}

func (e *Engine) GetLatestUser(ctx context.Context, id int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	row, extras, deleted, timing, found, err := e.GetLatest(ctx, userSpec, id)
	return row, extras, deleted, timing, found, err
}

func (e *Engine) GetUserAt(ctx context.Context, id int64, atTimestampMs int64) (codec.Row, json.RawMessage, Timing, bool, error) {
	return e.GetAt(ctx, userSpec, id, atTimestampMs)
}
