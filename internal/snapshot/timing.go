// Package snapshot implements the append-only versioned store described in
// spec.md §4.2: add_snapshot/mark_deleted/get_latest/get_at and friends,
// layered over the codec (internal/codec) and the schema DDL
// (internal/schema).
package snapshot

// Timing packs a millisecond timestamp and a realtime bit into one 64-bit
// integer, per spec.md §3: timestamp<<1 | realtime. Zero means
// "creation-time, unknown precise moment".
type Timing int64

// NewTiming packs a timestamp (ms since epoch) and the realtime bit.
// realtime is true if the observation came from the live gateway event
// stream, false if inferred from a bulk/backfill read.
func NewTiming(timestampMs int64, realtime bool) Timing {
	v := timestampMs << 1
	if realtime {
		v |= 1
	}
	return Timing(v)
}

// Zero is the sentinel "creation-time, unknown precise moment" timing.
const Zero Timing = 0

// Timestamp returns the millisecond timestamp component.
func (t Timing) Timestamp() int64 {
	return int64(t) >> 1
}

// Realtime returns whether this timing was observed live.
func (t Timing) Realtime() bool {
	return int64(t)&1 != 0
}

// Bound returns the packed timing to compare latest/previous snapshot
// timings against for a point-in-time query at timestampMs: per spec.md
// §4.2, (ts<<1)|1, so that any snapshot recorded AT exactly ts (whether
// realtime or not) is included.
func Bound(timestampMs int64) Timing {
	return Timing(timestampMs<<1 | 1)
}

// Less reports whether t strictly precedes other — the monotonicity check
// spec.md §8 property 4 requires of every non-equal snapshot update.
func (t Timing) Less(other Timing) bool {
	return t < other
}
