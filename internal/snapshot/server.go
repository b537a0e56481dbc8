package snapshot

import (
	"context"
	"encoding/json"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var serverSpec = SpecFor(codec.KindServer)

// AddServerSnapshot records an observation of a server (guild) object.
func (e *Engine) AddServerSnapshot(ctx context.Context, id int64, timing Timing, row codec.Row, extras json.RawMessage) (AddResult, error) {
	return e.AddSnapshot(ctx, serverSpec, id, timing, row, extras, nil)
}

func (e *Engine) GetLatestServer(ctx context.Context, id int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	return e.GetLatest(ctx, serverSpec, id)
}

func (e *Engine) MarkServerDeleted(ctx context.Context, id int64, timing Timing) (bool, error) {
	return e.MarkDeleted(ctx, serverSpec, id, timing)
}
