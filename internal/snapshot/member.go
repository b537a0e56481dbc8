package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

var memberMutableCols = codec.MutableColumns(codec.Schemas[codec.KindMember])

// MemberRecord is one row read back from member_snapshots: a present member
// if Row["joined_at"] is non-nil, a "member left" tombstone otherwise (spec.md
// §4.2's null-member-row convention).
type MemberRecord struct {
	GuildID int64
	UserID  int64
	Timing  Timing
	Row     codec.Row
	Extras  json.RawMessage
}

func (e *Engine) fetchMember(ctx context.Context, guildID, userID int64) (*MemberRecord, error) {
	selectCols := append([]string{"_timestamp"}, memberMutableCols...)
	query := fmt.Sprintf("SELECT %s, _extra FROM member_snapshots WHERE _guild_id = ? AND _user_id = ?",
		joinQuoted(selectCols))
	row := e.DB.QueryRowContext(ctx, query, guildID, userID)

	dest := make([]any, len(selectCols)+1)
	dest[0] = new(int64)
	for i := range memberMutableCols {
		dest[1+i] = new(any)
	}
	var extraStr sql.NullString
	dest[len(dest)-1] = &extraStr

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: fetch member (%d,%d): %w", guildID, userID, err)
	}

	rec := &MemberRecord{
		GuildID: guildID,
		UserID:  userID,
		Timing:  Timing(*dest[0].(*int64)),
		Row:     codec.Row{},
	}
	for i, c := range memberMutableCols {
		rec.Row[c] = *dest[1+i].(*any)
	}
	if extraStr.Valid {
		rec.Extras = json.RawMessage(extraStr.String)
	}
	return rec, nil
}

// AddMemberSnapshot records an observation of a member object. partial
// names mutable columns the caller omitted (e.g. voice-only deaf/mute not
// present in this event); they are filled in from the prior row, per
// spec.md §4.2 "Member specifics".
func (e *Engine) AddMemberSnapshot(ctx context.Context, guildID, userID int64, timing Timing, row codec.Row, extrasJSON json.RawMessage, partial map[string]bool) (AddResult, error) {
	existing, err := e.fetchMember(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}

	if existing == nil {
		for _, c := range memberMutableCols {
			if _, present := row[c]; !present && !partial[c] {
				return PartialNoSnapshot, nil
			}
		}
		if err := e.insertMember(ctx, guildID, userID, timing, row, extrasJSON); err != nil {
			return 0, err
		}
		return AddedFirstSnapshot, nil
	}

	filled := make(codec.Row, len(row))
	for k, v := range row {
		filled[k] = v
	}
	for _, c := range memberMutableCols {
		if _, present := filled[c]; !present {
			filled[c] = existing.Row[c]
		}
	}

	var newExtras, oldExtras map[string]any
	if err := unmarshalExtras(extrasJSON, &newExtras); err != nil {
		return 0, err
	}
	if err := unmarshalExtras(existing.Extras, &oldExtras); err != nil {
		return 0, err
	}

	same := deepEqualRow(existing.Row, filled) && deepEqualExtras(oldExtras, newExtras)
	if same {
		return SameAsLatest, nil
	}

	if !existing.Timing.Less(timing) {
		return 0, &MonotonicityError{Kind: "member", ID: userID, Latest: existing.Timing, Proposed: timing}
	}

	if err := e.overwriteMember(ctx, guildID, userID, timing, filled, extrasJSON); err != nil {
		return 0, err
	}
	return AddedAnotherSnapshot, nil
}

// AddMemberLeave appends the null-member tombstone row (spec.md §4.2):
// every mutable column, including joined_at, goes to null.
func (e *Engine) AddMemberLeave(ctx context.Context, guildID, userID int64, timing Timing) (AddResult, error) {
	nullRow := make(codec.Row, len(memberMutableCols))
	for _, c := range memberMutableCols {
		nullRow[c] = nil
	}
	return e.AddMemberSnapshot(ctx, guildID, userID, timing, nullRow, nil, nil)
}

// SyncMembers appends a leave tombstone for every member currently on
// record as present in guildID but absent from presentUserIDs (spec.md
// §4.2 sync_members), used after a member-list backfill to reconcile
// members who left while the archiver was offline.
func (e *Engine) SyncMembers(ctx context.Context, guildID int64, presentUserIDs []int64, timing Timing) (int, error) {
	present := make(map[int64]bool, len(presentUserIDs))
	for _, id := range presentUserIDs {
		present[id] = true
	}

	rows, err := e.DB.QueryContext(ctx,
		`SELECT _user_id FROM member_snapshots WHERE _guild_id = ? AND "joined_at" IS NOT NULL`, guildID)
	if err != nil {
		return 0, fmt.Errorf("snapshot: sync_members list present: %w", err)
	}
	var toLeave []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return 0, err
		}
		if !present[uid] {
			toLeave = append(toLeave, uid)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	left := 0
	for _, uid := range toLeave {
		result, err := e.AddMemberLeave(ctx, guildID, uid, timing)
		if err != nil {
			return left, err
		}
		if result == AddedAnotherSnapshot {
			left++
		}
	}
	return left, nil
}

// ListGuildMembers returns every present member (joined_at not null) of
// guildID. Because member_snapshots carries no previous partition, this
// reflects current knowledge only — there is no historical member listing.
func (e *Engine) ListGuildMembers(ctx context.Context, guildID int64) ([]MemberRecord, error) {
	selectCols := append([]string{"_user_id", "_timestamp"}, memberMutableCols...)
	query := fmt.Sprintf(`SELECT %s, _extra FROM member_snapshots WHERE _guild_id = ? AND "joined_at" IS NOT NULL`,
		joinQuoted(selectCols))
	rows, err := e.DB.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list guild members: %w", err)
	}
	defer rows.Close()

	var out []MemberRecord
	for rows.Next() {
		dest := make([]any, len(selectCols)+1)
		dest[0] = new(int64)
		dest[1] = new(int64)
		for i := range memberMutableCols {
			dest[2+i] = new(any)
		}
		var extraStr sql.NullString
		dest[len(dest)-1] = &extraStr
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec := MemberRecord{
			GuildID: guildID,
			UserID:  *dest[0].(*int64),
			Timing:  Timing(*dest[1].(*int64)),
			Row:     codec.Row{},
		}
		for i, c := range memberMutableCols {
			rec.Row[c] = *dest[2+i].(*any)
		}
		if extraStr.Valid {
			rec.Extras = json.RawMessage(extraStr.String)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (e *Engine) insertMember(ctx context.Context, guildID, userID int64, timing Timing, row codec.Row, extrasJSON json.RawMessage) error {
	cols := append([]string{"_guild_id", "_user_id", "_timestamp"}, memberMutableCols...)
	cols = append(cols, "_extra")
	vals := make([]any, 0, len(cols))
	vals = append(vals, guildID, userID, int64(timing))
	for _, c := range memberMutableCols {
		vals = append(vals, row[c])
	}
	vals = append(vals, string(extrasJSON))

	query := fmt.Sprintf("INSERT INTO member_snapshots (%s) VALUES (%s)", joinQuoted(cols), placeholders(len(cols)))
	_, err := e.DB.ExecContext(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("snapshot: insert member (%d,%d): %w", guildID, userID, err)
	}
	return nil
}

func (e *Engine) overwriteMember(ctx context.Context, guildID, userID int64, timing Timing, row codec.Row, extrasJSON json.RawMessage) error {
	setCols := append([]string{"_timestamp"}, memberMutableCols...)
	setCols = append(setCols, "_extra")
	assignments := make([]string, len(setCols))
	vals := make([]any, 0, len(setCols)+2)
	vals = append(vals, int64(timing))
	for _, c := range memberMutableCols {
		vals = append(vals, row[c])
	}
	vals = append(vals, string(extrasJSON))
	for i, c := range setCols {
		assignments[i] = quoteCol(c) + " = ?"
	}
	vals = append(vals, guildID, userID)

	query := fmt.Sprintf("UPDATE member_snapshots SET %s WHERE _guild_id = ? AND _user_id = ?",
		joinStrings(assignments))
	_, err := e.DB.ExecContext(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("snapshot: overwrite member (%d,%d): %w", guildID, userID, err)
	}
	return nil
}
