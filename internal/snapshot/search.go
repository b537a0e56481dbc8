package snapshot

import (
	"context"
	"fmt"
)

// SearchResult is one FTS5 match: the message id and the snippet/rank
// columns an eventlog-style cursor query typically surfaces.
type SearchResult struct {
	MessageID int64
	ChannelID int64
	Rank      float64
}

// SearchMessages runs a full-text query scoped to channelID. Per spec.md §9
// Open Question #2 (resolved in DESIGN.md), the match also includes
// messages posted in any thread whose parent is channelID: message_fts_index
// carries thread_parent_id precisely so a channel-scoped search surfaces
// its threads' content too, rather than requiring a second query per thread.
func (e *Engine) SearchMessages(ctx context.Context, channelID int64, query string, limit int) ([]SearchResult, error) {
	rows, err := e.DB.QueryContext(ctx, `
		SELECT message_id, channel_id, bm25(message_fts_index) AS rank
		FROM message_fts_index
		WHERE message_fts_index MATCH ?
		  AND (channel_id = ? OR thread_parent_id = ?)
		ORDER BY rank
		LIMIT ?`,
		query, channelID, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: search messages: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.MessageID, &r.ChannelID, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
