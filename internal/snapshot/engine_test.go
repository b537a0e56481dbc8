package snapshot_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/duarte-pardal/discord-archiver/internal/codec"
	"github.com/duarte-pardal/discord-archiver/internal/schema"
	"github.com/duarte-pardal/discord-archiver/internal/snapshot"
)

func newEngine(t *testing.T) *snapshot.Engine {
	t.Helper()
	db, err := schema.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return snapshot.New(db)
}

func TestAddUserSnapshotFirstThenSame(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	row := codec.Row{"username": "ada", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": int64(0), "system": int64(0), "public_flags": nil}
	result, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(1000, true), row, nil)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if result != snapshot.AddedFirstSnapshot {
		t.Fatalf("result = %v, want AddedFirstSnapshot", result)
	}

	result, err = e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(2000, true), row, nil)
	if err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	if result != snapshot.SameAsLatest {
		t.Fatalf("result = %v, want SameAsLatest", result)
	}
}

func TestAddUserSnapshotChangedMutable(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	row := codec.Row{"username": "ada", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	if _, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(1000, true), row, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}

	row2 := codec.Row{"username": "ada-lovelace", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	result, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(2000, true), row2, nil)
	if err != nil {
		t.Fatalf("changed add: %v", err)
	}
	if result != snapshot.AddedAnotherSnapshot {
		t.Fatalf("result = %v, want AddedAnotherSnapshot", result)
	}

	latest, _, _, _, found, err := e.GetLatestUser(ctx, 1)
	if err != nil || !found {
		t.Fatalf("GetLatestUser: found=%v err=%v", found, err)
	}
	if latest["username"] != "ada-lovelace" {
		t.Errorf("username = %v, want ada-lovelace", latest["username"])
	}
}

func TestImmutableFieldChangeRejected(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	row := codec.Row{"username": "ada", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	if _, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(1000, true), row, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}

	row2 := codec.Row{"username": "ada", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": true, "system": false, "public_flags": nil}
	_, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(2000, true), row2, nil)
	var immutableErr *snapshot.ImmutableFieldError
	if err == nil {
		t.Fatal("expected ImmutableFieldError, got nil")
	}
	if !asImmutableFieldError(err, &immutableErr) {
		t.Fatalf("expected *ImmutableFieldError, got %T: %v", err, err)
	}
	if immutableErr.Field != "bot" {
		t.Errorf("field = %q, want bot", immutableErr.Field)
	}
}

func TestMonotonicityViolationRejected(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	row := codec.Row{"username": "ada", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	if _, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(2000, true), row, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}

	row2 := codec.Row{"username": "ada2", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	_, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(1000, true), row2, nil)
	var monoErr *snapshot.MonotonicityError
	if !asMonotonicityError(err, &monoErr) {
		t.Fatalf("expected *MonotonicityError, got %T: %v", err, err)
	}
}

func TestGetAtPointInTime(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	row1 := codec.Row{"username": "ada", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	if _, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(1000, true), row1, nil); err != nil {
		t.Fatalf("add @1000: %v", err)
	}
	row2 := codec.Row{"username": "ada-lovelace", "discriminator": "0001", "global_name": nil, "avatar": nil, "bot": false, "system": false, "public_flags": nil}
	if _, err := e.AddUserSnapshot(ctx, 1, snapshot.NewTiming(2000, true), row2, nil); err != nil {
		t.Fatalf("add @2000: %v", err)
	}

	row, _, timing, found, err := e.GetUserAt(ctx, 1, 1500)
	if err != nil || !found {
		t.Fatalf("GetUserAt(1500): found=%v err=%v", found, err)
	}
	if row["username"] != "ada" {
		t.Errorf("username at 1500 = %v, want ada (pre-change)", row["username"])
	}
	if timing.Timestamp() != 1000 {
		t.Errorf("timing = %d, want 1000", timing.Timestamp())
	}

	row, _, _, found, err = e.GetUserAt(ctx, 1, 500)
	if err != nil {
		t.Fatalf("GetUserAt(500): %v", err)
	}
	if found {
		t.Errorf("expected no snapshot before creation, got %v", row)
	}

	row, _, _, found, err = e.GetUserAt(ctx, 1, 2500)
	if err != nil || !found {
		t.Fatalf("GetUserAt(2500): found=%v err=%v", found, err)
	}
	if row["username"] != "ada-lovelace" {
		t.Errorf("username at 2500 = %v, want ada-lovelace (post-change)", row["username"])
	}
}

func asImmutableFieldError(err error, target **snapshot.ImmutableFieldError) bool {
	if e, ok := err.(*snapshot.ImmutableFieldError); ok {
		*target = e
		return true
	}
	return false
}

func asMonotonicityError(err error, target **snapshot.MonotonicityError) bool {
	if e, ok := err.(*snapshot.MonotonicityError); ok {
		*target = e
		return true
	}
	return false
}
