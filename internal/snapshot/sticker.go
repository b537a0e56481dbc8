package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var stickerCols = append(
	codec.ImmutableColumns(codec.Schemas[codec.KindSticker]),
	codec.MutableColumns(codec.Schemas[codec.KindSticker])...,
)

// UpsertSticker records the current state of a sticker. Stickers are a
// small, rarely-changing side table keyed by id (like attachments), not a
// versioned kind: SPEC_FULL.md's domain-stack expansion keeps them as a
// plain upsert rather than paying for a latest/previous snapshot pair.
func (e *Engine) UpsertSticker(ctx context.Context, id, serverID int64, row codec.Row, extrasJSON json.RawMessage) error {
	cols := append([]string{"id", "server_id"}, stickerCols...)
	cols = append(cols, "_extra")
	vals := make([]any, 0, len(cols))
	vals = append(vals, id, serverID)
	for _, c := range stickerCols {
		vals = append(vals, row[c])
	}
	vals = append(vals, string(extrasJSON))

	assignments := make([]string, 0, len(stickerCols)+1)
	for _, c := range stickerCols {
		assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", quoteCol(c), quoteCol(c)))
	}
	assignments = append(assignments, `"_extra" = excluded."_extra"`)

	query := fmt.Sprintf(
		"INSERT INTO stickers (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		joinQuoted(cols), placeholders(len(cols)), joinStrings(assignments))
	if _, err := e.DB.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("snapshot: upsert sticker %d: %w", id, err)
	}
	return nil
}

// ListStickersByServer returns sticker ids belonging to serverID.
func (e *Engine) ListStickersByServer(ctx context.Context, serverID int64) ([]int64, error) {
	rows, err := e.DB.QueryContext(ctx, `SELECT id FROM stickers WHERE server_id = ?`, serverID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list stickers for server %d: %w", serverID, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
