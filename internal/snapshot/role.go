package snapshot

import (
	"context"
	"encoding/json"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var roleSpec = SpecFor(codec.KindRole)

// AddRoleSnapshot records an observation of a role object. The server a
// role belongs to is not stored on the role row itself (roles are
// globally-unique snowflakes); callers track the server/role relationship
// through the server's role-id list seen in gateway/REST payloads.
func (e *Engine) AddRoleSnapshot(ctx context.Context, id int64, timing Timing, row codec.Row, extras json.RawMessage) (AddResult, error) {
	return e.AddSnapshot(ctx, roleSpec, id, timing, row, extras, nil)
}

func (e *Engine) GetLatestRole(ctx context.Context, id int64) (codec.Row, json.RawMessage, bool, Timing, bool, error) {
	return e.GetLatest(ctx, roleSpec, id)
}

func (e *Engine) MarkRoleDeleted(ctx context.Context, id int64, timing Timing) (bool, error) {
	return e.MarkDeleted(ctx, roleSpec, id, timing)
}
