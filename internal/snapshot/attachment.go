package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var attachmentCols = codec.ImmutableColumns(codec.Schemas[codec.KindAttachment])

// AddAttachment inserts an attachment row if it doesn't already exist.
// Attachments are immutable and never versioned (spec.md §4.2 "Messages —
// special rules": "inserted by id with INSERT OR IGNORE").
func (e *Engine) AddAttachment(ctx context.Context, id, messageID int64, row codec.Row, extrasJSON json.RawMessage) error {
	cols := append([]string{"id", "message_id"}, attachmentCols...)
	cols = append(cols, "_extra")
	vals := make([]any, 0, len(cols))
	vals = append(vals, id, messageID)
	for _, c := range attachmentCols {
		vals = append(vals, row[c])
	}
	vals = append(vals, string(extrasJSON))

	query := fmt.Sprintf("INSERT OR IGNORE INTO attachments (%s) VALUES (%s)", joinQuoted(cols), placeholders(len(cols)))
	if _, err := e.DB.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("snapshot: insert attachment %d: %w", id, err)
	}
	return nil
}

// ListAttachmentsByMessage returns attachment ids belonging to messageID.
func (e *Engine) ListAttachmentsByMessage(ctx context.Context, messageID int64) ([]int64, error) {
	rows, err := e.DB.QueryContext(ctx, `SELECT id FROM attachments WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list attachments for message %d: %w", messageID, err)
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
