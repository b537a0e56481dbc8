package snapshot

import (
	"context"
	"database/sql"
	"fmt"
)

// LookupOrCreateWebhookUser resolves the synthetic user id for a webhook
// message's apparent author, per spec.md §3's WebhookUser record: "an
// internal record assigned a synthetic integer id below the snowflake
// range, keyed by (webhook_id, username, avatar_hash)". Negative ids are
// used as the synthetic range since real snowflakes are always positive.
func (e *Engine) LookupOrCreateWebhookUser(ctx context.Context, webhookID int64, username string, avatarHash *string) (int64, error) {
	var avatar any
	if avatarHash != nil {
		avatar = *avatarHash
	}

	var id int64
	err := e.DB.QueryRowContext(ctx,
		`SELECT id FROM webhook_users WHERE webhook_id = ? AND username = ? AND avatar_hash IS ?`,
		webhookID, username, avatar,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("snapshot: lookup webhook user: %w", err)
	}

	res, err := e.DB.ExecContext(ctx,
		`INSERT INTO webhook_users (webhook_id, username, avatar_hash) VALUES (?, ?, ?)`,
		webhookID, username, avatar)
	if err != nil {
		return 0, fmt.Errorf("snapshot: insert webhook user: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot: webhook user last insert id: %w", err)
	}
	if _, err := e.DB.ExecContext(ctx, `UPDATE webhook_users SET id = -id WHERE id = ?`, newID); err != nil {
		return 0, fmt.Errorf("snapshot: assign synthetic webhook user id: %w", err)
	}
	return -newID, nil
}
