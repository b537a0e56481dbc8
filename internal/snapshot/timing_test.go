package snapshot

import "testing"

func TestTimingPacking(t *testing.T) {
	tm := NewTiming(1000, true)
	if tm.Timestamp() != 1000 {
		t.Errorf("timestamp = %d, want 1000", tm.Timestamp())
	}
	if !tm.Realtime() {
		t.Error("expected realtime bit set")
	}

	tm2 := NewTiming(1000, false)
	if tm2.Realtime() {
		t.Error("expected realtime bit clear")
	}
	if tm2 >= tm {
		t.Errorf("realtime bit should make timing larger for equal timestamps: %d vs %d", tm2, tm)
	}
}

func TestTimingOrdering(t *testing.T) {
	a := NewTiming(1000, false)
	b := NewTiming(2000, false)
	if !a.Less(b) {
		t.Error("expected a < b")
	}
	if b.Less(a) {
		t.Error("expected !(b < a)")
	}
}

func TestBoundIncludesExactTimestamp(t *testing.T) {
	ts := int64(5000)
	bound := Bound(ts)
	exact := NewTiming(ts, true)
	if exact > bound {
		t.Errorf("exact realtime timing %d should be <= bound %d", exact, bound)
	}
	exactOffline := NewTiming(ts, false)
	if exactOffline > bound {
		t.Errorf("exact non-realtime timing %d should be <= bound %d", exactOffline, bound)
	}
	future := NewTiming(ts+1, false)
	if future <= bound {
		t.Errorf("future timing %d should exceed bound %d", future, bound)
	}
}
