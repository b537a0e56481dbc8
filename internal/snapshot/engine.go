package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
)

// KindSpec binds the codec schema for one object kind to its concrete
// table names and any kind-specific exceptions to the default
// add_snapshot algorithm (spec.md §4.2 step 2/3).
type KindSpec struct {
	Kind          codec.Kind
	LatestTable   string
	PreviousTable string
	Immutable     []string
	Mutable       []string

	// CompareImmutable overrides the default equality check for one
	// immutable column. Returning (true, nil) accepts the new value even
	// if it differs; returning an error rejects it; a nil entry in the map
	// falls back to the default equality comparison.
	CompareImmutable map[string]func(old, new any) (ok bool, err error)

	// NormalizeExtras is applied to both the stored and proposed extras
	// maps before the deep-equal "same as latest" comparison (spec.md
	// §4.2 step 3: messages normalize embed CDN URLs here).
	NormalizeExtras func(extras map[string]any) map[string]any
}

func SpecFor(kind codec.Kind) KindSpec {
	fields := codec.Schemas[kind]
	return KindSpec{
		Kind:          kind,
		LatestTable:   fmt.Sprintf("latest_%s_snapshots", kind),
		PreviousTable: fmt.Sprintf("previous_%s_snapshots", kind),
		Immutable:     codec.ImmutableColumns(fields),
		Mutable:       codec.MutableColumns(fields),
	}
}

// Engine runs the add_snapshot/mark_deleted/get_at algorithms over a
// database handle. It is deliberately storage-agnostic about *sql.DB vs
// *sql.Tx by accepting the execer/queryer interface below, so the request
// bus's single-writer worker can run it either directly on the connection
// or inside an explicit transaction.
type Engine struct {
	DB Querier
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db Querier) *Engine {
	return &Engine{DB: db}
}

// latestRow is what AddSnapshot reads back before deciding first/same/another.
type latestRow struct {
	timestamp int64
	deleted   sql.NullInt64
	columns   map[string]any
	extras    map[string]any
}

func (e *Engine) fetchLatest(ctx context.Context, spec KindSpec, id int64) (*latestRow, error) {
	cols := append(append([]string{}, spec.Immutable...), spec.Mutable...)
	selectCols := append([]string{"_timestamp", "_deleted"}, cols...)
	selectCols = append(selectCols, "_extra")
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(quoteAll(selectCols), ", "), spec.LatestTable)

	row := e.DB.QueryRowContext(ctx, query, id)
	dest := make([]any, len(selectCols))
	dest[0] = new(int64)
	dest[1] = new(sql.NullInt64)
	for i := range cols {
		dest[2+i] = new(any)
	}
	var extraStr sql.NullString
	dest[len(dest)-1] = &extraStr

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: fetch latest %s %d: %w", spec.Kind, id, err)
	}

	out := &latestRow{
		timestamp: *dest[0].(*int64),
	}
	if dn, ok := dest[1].(*sql.NullInt64); ok {
		out.deleted = *dn
	}
	out.columns = make(map[string]any, len(cols))
	for i, c := range cols {
		out.columns[c] = *dest[2+i].(*any)
	}
	out.extras = map[string]any{}
	if extraStr.Valid && extraStr.String != "" {
		if err := json.Unmarshal([]byte(extraStr.String), &out.extras); err != nil {
			return nil, fmt.Errorf("snapshot: unmarshal extras for %s %d: %w", spec.Kind, id, err)
		}
	}
	return out, nil
}

// AddSnapshot implements spec.md §4.2's add_snapshot algorithm generically
// over any versioned kind. A mutable column absent from row is filled in
// from the latest snapshot. partial, when non-nil, names the columns row may
// omit when there is no snapshot yet; omitting any other column then yields
// PartialNoSnapshot.
func (e *Engine) AddSnapshot(ctx context.Context, spec KindSpec, id int64, timing Timing, row codec.Row, extrasJSON json.RawMessage, partial map[string]bool) (AddResult, error) {
	var extras map[string]any
	if len(extrasJSON) > 0 {
		if err := json.Unmarshal(extrasJSON, &extras); err != nil {
			return 0, fmt.Errorf("snapshot: unmarshal proposed extras: %w", err)
		}
	} else {
		extras = map[string]any{}
	}

	existing, err := e.fetchLatest(ctx, spec, id)
	if err != nil {
		return 0, err
	}

	if existing == nil {
		if partial != nil {
			for _, c := range append(append([]string{}, spec.Immutable...), spec.Mutable...) {
				if _, present := row[c]; !present && !partial[c] {
					return PartialNoSnapshot, nil
				}
			}
		}
		if err := e.insertFirst(ctx, spec, id, timing, row, extrasJSON); err != nil {
			return 0, err
		}
		return AddedFirstSnapshot, nil
	}

	for _, c := range spec.Immutable {
		newVal, present := row[c]
		if !present {
			continue // immutable fields are never partial in practice
		}
		oldVal := existing.columns[c]
		if cmp, ok := spec.CompareImmutable[c]; ok {
			if ok2, err := cmp(oldVal, newVal); err != nil {
				return 0, err
			} else if ok2 {
				continue
			}
			return 0, &ImmutableFieldError{Kind: string(spec.Kind), ID: id, Field: c}
		}
		if !compareColumnValues(oldVal, newVal) {
			return 0, &ImmutableFieldError{Kind: string(spec.Kind), ID: id, Field: c}
		}
	}

	filled := make(codec.Row, len(row))
	for k, v := range row {
		filled[k] = v
	}
	for _, c := range spec.Mutable {
		if _, present := filled[c]; !present {
			filled[c] = existing.columns[c]
		}
	}

	sameMutable := true
	for _, c := range spec.Mutable {
		if !compareColumnValues(existing.columns[c], filled[c]) {
			sameMutable = false
			break
		}
	}

	oldExtras, newExtras := existing.extras, extras
	if spec.NormalizeExtras != nil {
		oldExtras = spec.NormalizeExtras(oldExtras)
		newExtras = spec.NormalizeExtras(newExtras)
	}
	sameExtras := reflect.DeepEqual(oldExtras, newExtras)

	if sameMutable && sameExtras {
		return SameAsLatest, nil
	}

	if !existing.timestamp2Timing().Less(timing) {
		return 0, &MonotonicityError{Kind: string(spec.Kind), ID: id, Latest: existing.timestamp2Timing(), Proposed: timing}
	}

	if err := e.archiveAndOverwrite(ctx, spec, id, timing, existing, filled, extrasJSON); err != nil {
		return 0, err
	}
	return AddedAnotherSnapshot, nil
}

func (lr *latestRow) timestamp2Timing() Timing {
	return Timing(lr.timestamp)
}

func (e *Engine) insertFirst(ctx context.Context, spec KindSpec, id int64, timing Timing, row codec.Row, extrasJSON json.RawMessage) error {
	cols := append([]string{"id", "_timestamp"}, spec.Immutable...)
	cols = append(cols, spec.Mutable...)
	cols = append(cols, "_extra")

	vals := make([]any, 0, len(cols))
	vals = append(vals, id, int64(timing))
	for _, c := range spec.Immutable {
		vals = append(vals, row[c])
	}
	for _, c := range spec.Mutable {
		vals = append(vals, row[c])
	}
	vals = append(vals, string(extrasJSON))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", spec.LatestTable, strings.Join(quoteAll(cols), ", "), placeholders)
	_, err := e.DB.ExecContext(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("snapshot: insert first %s %d: %w", spec.Kind, id, err)
	}
	return nil
}

func (e *Engine) archiveAndOverwrite(ctx context.Context, spec KindSpec, id int64, timing Timing, existing *latestRow, filled codec.Row, extrasJSON json.RawMessage) error {
	prevCols := append([]string{"id", "_timestamp"}, spec.Mutable...)
	prevCols = append(prevCols, "_extra")
	prevVals := make([]any, 0, len(prevCols))
	prevVals = append(prevVals, id, existing.timestamp)
	for _, c := range spec.Mutable {
		prevVals = append(prevVals, existing.columns[c])
	}
	extrasBytes, err := json.Marshal(existing.extras)
	if err != nil {
		return fmt.Errorf("snapshot: marshal archived extras: %w", err)
	}
	prevVals = append(prevVals, string(extrasBytes))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(prevCols)), ", ")
	insertPrev := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", spec.PreviousTable, strings.Join(quoteAll(prevCols), ", "), placeholders)
	if _, err := e.DB.ExecContext(ctx, insertPrev, prevVals...); err != nil {
		return fmt.Errorf("snapshot: archive previous %s %d: %w", spec.Kind, id, err)
	}

	setCols := append([]string{"_timestamp"}, spec.Mutable...)
	setCols = append(setCols, "_extra")
	setVals := make([]any, 0, len(setCols)+1)
	setVals = append(setVals, int64(timing))
	for _, c := range spec.Mutable {
		setVals = append(setVals, filled[c])
	}
	setVals = append(setVals, string(extrasJSON))
	setVals = append(setVals, id)

	assignments := make([]string, len(setCols))
	for i, c := range setCols {
		assignments[i] = quoteCol(c) + " = ?"
	}
	update := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", spec.LatestTable, strings.Join(assignments, ", "))
	if _, err := e.DB.ExecContext(ctx, update, setVals...); err != nil {
		return fmt.Errorf("snapshot: overwrite latest %s %d: %w", spec.Kind, id, err)
	}
	return nil
}

// MarkDeleted sets the tombstone timing on the latest snapshot. It is
// idempotent: the second call reports changed=false.
func (e *Engine) MarkDeleted(ctx context.Context, spec KindSpec, id int64, timing Timing) (changed bool, err error) {
	res, err := e.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET _deleted = ? WHERE id = ? AND _deleted IS NULL", spec.LatestTable),
		int64(timing), id)
	if err != nil {
		return false, fmt.Errorf("snapshot: mark deleted %s %d: %w", spec.Kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetAt implements spec.md §4.2 "get at timestamp": fetch latest; if its
// timing is within bound, return it; else look back into the previous
// partition for the newest snapshot at or before bound.
func (e *Engine) GetAt(ctx context.Context, spec KindSpec, id int64, atTimestampMs int64) (codec.Row, json.RawMessage, Timing, bool, error) {
	bound := Bound(atTimestampMs)
	latest, err := e.fetchLatest(ctx, spec, id)
	if err != nil {
		return nil, nil, 0, false, err
	}
	if latest == nil {
		return nil, nil, 0, false, nil
	}
	if Timing(latest.timestamp) <= bound {
		row, extras := latest.toRowAndExtras(spec)
		return row, extras, Timing(latest.timestamp), true, nil
	}

	cols := append([]string{"_timestamp"}, spec.Mutable...)
	cols = append(cols, "_extra")
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = ? AND _timestamp <= ? ORDER BY _timestamp DESC LIMIT 1",
		strings.Join(quoteAll(cols), ", "), spec.PreviousTable)
	row := e.DB.QueryRowContext(ctx, query, id, int64(bound))

	dest := make([]any, len(cols))
	dest[0] = new(int64)
	for i := range spec.Mutable {
		dest[1+i] = new(any)
	}
	var extraStr sql.NullString
	dest[len(dest)-1] = &extraStr
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, 0, false, nil
		}
		return nil, nil, 0, false, fmt.Errorf("snapshot: get-at %s %d: %w", spec.Kind, id, err)
	}

	out := codec.Row{}
	for _, c := range spec.Immutable {
		out[c] = latest.columns[c] // immutable columns never change, safe to take from latest
	}
	for i, c := range spec.Mutable {
		out[c] = *dest[1+i].(*any)
	}
	var extrasJSON json.RawMessage
	if extraStr.Valid {
		extrasJSON = json.RawMessage(extraStr.String)
	}
	return out, extrasJSON, Timing(*dest[0].(*int64)), true, nil
}

func (lr *latestRow) toRowAndExtras(spec KindSpec) (codec.Row, json.RawMessage) {
	out := codec.Row{}
	for _, c := range spec.Immutable {
		out[c] = lr.columns[c]
	}
	for _, c := range spec.Mutable {
		out[c] = lr.columns[c]
	}
	b, _ := json.Marshal(lr.extras)
	return out, json.RawMessage(b)
}

// GetLatest returns the latest snapshot row, whether it's tombstoned, and
// whether anything was found at all.
func (e *Engine) GetLatest(ctx context.Context, spec KindSpec, id int64) (row codec.Row, extras json.RawMessage, deleted bool, timing Timing, found bool, err error) {
	lr, err := e.fetchLatest(ctx, spec, id)
	if err != nil || lr == nil {
		return nil, nil, false, 0, false, err
	}
	row, extras = lr.toRowAndExtras(spec)
	return row, extras, lr.deleted.Valid, Timing(lr.timestamp), true, nil
}

// ListLatestByParent returns every latest-snapshot id for rows whose
// parentColumn equals parentID (spec.md §4.2 children listing).
func (e *Engine) ListLatestByParent(ctx context.Context, spec KindSpec, parentColumn string, parentID int64) ([]int64, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", spec.LatestTable, quoteCol(parentColumn))
	rows, err := e.DB.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list by parent %s: %w", spec.Kind, err)
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

// ListNotDeletedIDsByParent is ListLatestByParent filtered to rows without
// a tombstone.
func (e *Engine) ListNotDeletedIDsByParent(ctx context.Context, spec KindSpec, parentColumn string, parentID int64) ([]int64, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ? AND _deleted IS NULL", spec.LatestTable, quoteCol(parentColumn))
	rows, err := e.DB.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list not-deleted by parent %s: %w", spec.Kind, err)
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

func compareColumnValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, aIsBytes := a.([]byte)
	bb, bIsBytes := b.([]byte)
	if aIsBytes || bIsBytes {
		if !aIsBytes || !bIsBytes {
			return false
		}
		return bytes.Equal(ab, bb)
	}
	return a == b
}

func quoteCol(name string) string { return `"` + name + `"` }

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteCol(n)
	}
	return out
}
