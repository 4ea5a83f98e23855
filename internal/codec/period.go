package codec

import (
	"errors"
	"time"

	"nekogate/internal/clock"
	"nekogate/internal/policy"
)

// ErrDeadlineInPast is returned when a Period deadline is not strictly
// after the generation-time clock.
var ErrDeadlineInPast = errors.New("codec: period deadline is not in the future")

// ErrDeadlineTooFar is returned when a Period deadline is more than
// policy.PeriodMaxFutureHours hours ahead of the generation-time clock.
var ErrDeadlineTooFar = errors.New("codec: period deadline exceeds the expressible future window")

// Period is the absolute-deadline request variant: valid until the top of
// the named local hour. Unlike the other three variants, the value packed
// into the plaintext's parameter field IS the timestamp (the deadline's
// absolute hour since policy.PeriodReference, mod 2^10) — the variant has
// no separate notion of an "emission window", so the shared layout's
// time-window field is left reserved (zero).
type Period struct {
	Year, Month, Day, Hour int
}

func (Period) Tag() uint32     { return policy.TagPeriod }
func (Period) ParamBits() uint { return policy.ParamBitsPeriod }
func (Period) Quantum() int64  { return policy.QuantumPeriodSeconds }

// Deadline returns the absolute instant this Period names: the top of
// Hour on Year-Month-Day, in the fixed UTC+8 zone.
func (p Period) Deadline() time.Time {
	return time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, 0, 0, 0, clock.Location)
}

// absoluteHour returns the count of whole hours between policy.PeriodReference
// and t.
func absoluteHour(t time.Time) int64 {
	return int64(t.Sub(policy.PeriodReference) / time.Hour)
}

// Pack assembles the Period plaintext for a deadline requested while the
// generation clock reads nowLocalEpochSeconds. It returns ErrDeadlineInPast
// if the deadline is not strictly in the future, or ErrDeadlineTooFar if it
// is more than policy.PeriodMaxFutureHours hours ahead.
func (p Period) Pack(nowLocalEpochSeconds int64) (uint32, error) {
	now := clock.FromLocalEpochSeconds(nowLocalEpochSeconds)
	deadline := p.Deadline()

	if !deadline.After(now) {
		return 0, ErrDeadlineInPast
	}

	nowHour := absoluteHour(now)
	deadlineHour := absoluteHour(deadline)
	if deadlineHour-nowHour > policy.PeriodMaxFutureHours {
		return 0, ErrDeadlineTooFar
	}

	field := uint32(deadlineHour % policy.PeriodWrapHours)
	return pack(p.Tag(), p.ParamBits(), field, 0), nil
}

// UnpackPeriod recovers the Period deadline encoded in plaintext, choosing
// whichever absolute hour congruent to the decoded field is closest to the
// current absolute hour (nowLocalEpochSeconds), per spec.md §4.4. Ties
// resolve to the later candidate. A plaintext whose reserved time-window
// field is not zero is rejected.
func UnpackPeriod(plaintext uint32, nowLocalEpochSeconds int64) (deadline time.Time, ok bool) {
	tag, field, window := unpack(plaintext, policy.ParamBitsPeriod)
	if tag != policy.TagPeriod || window != 0 {
		return time.Time{}, false
	}

	now := clock.FromLocalEpochSeconds(nowLocalEpochSeconds)
	nowHour := absoluteHour(now)

	h := nearestCongruentAbsolute(nowHour, policy.ParamBitsPeriod, field)
	return policy.PeriodReference.Add(time.Duration(h) * time.Hour), true
}
