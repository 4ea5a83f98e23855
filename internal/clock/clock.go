// Package clock provides an injectable "now" abstraction fixed to the
// regional offset (UTC+8) the door-access codec assumes throughout.
//
// All time quanta in internal/codec are computed by integer division of
// the local epoch second — the Unix timestamp shifted by the fixed
// regional offset — by a quantum length. Production code uses System;
// tests use Fixed so that generation and verification can be exercised at
// exact, reproducible instants.
package clock

import "time"

// Offset is the fixed regional offset the codec operates in: UTC+8.
const Offset = 8 * 3600

// Location is the fixed time.Location matching Offset, used whenever a
// wall-clock string needs rendering.
var Location = time.FixedZone("UTC+8", Offset)

// Clock abstracts the current instant.
type Clock interface {
	Now() time.Time
}

// System is the production Clock, backed by the real system clock.
type System struct{}

// Now returns the current time in the fixed UTC+8 zone.
func (System) Now() time.Time {
	return time.Now().In(Location)
}

// Fixed is a deterministic test Clock that always returns the same instant.
type Fixed struct {
	At time.Time
}

// Now returns the fixed instant, converted to the UTC+8 zone.
func (f Fixed) Now() time.Time {
	return f.At.In(Location)
}

// LocalEpochSeconds returns t's Unix timestamp shifted by the fixed
// regional offset, i.e. the count of seconds since 1970-01-01 00:00:00 as
// read on a UTC+8 wall clock. Every quantum computation in internal/codec
// starts from this value so that window indices agree regardless of which
// zone the calling process's system clock happens to be in.
func LocalEpochSeconds(t time.Time) int64 {
	return t.Unix() + Offset
}

// FromLocalEpochSeconds is the inverse of LocalEpochSeconds: given a count
// of seconds since 1970-01-01 00:00:00 as read on a UTC+8 wall clock, it
// returns the corresponding instant rendered in the fixed UTC+8 zone.
func FromLocalEpochSeconds(localEpochSeconds int64) time.Time {
	return time.Unix(localEpochSeconds-Offset, 0).In(Location)
}

// Format renders t as the fixed "YYYY-MM-DD HH:MM:SS" local format used for
// expiry messages (spec.md §6).
func Format(t time.Time) string {
	return t.In(Location).Format("2006-01-02 15:04:05")
}
