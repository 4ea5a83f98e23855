// Package policy collects the fixed constants that govern password
// validity: quantum lengths, validity spans, verification tolerances, and
// legal parameter ranges for each request variant. Keeping them in one
// place makes the compatibility surface (spec.md §9) easy to audit.
package policy

import "time"

// Tag bits identifying each variant in the packed 32-bit plaintext. Fixed
// forever; do not renumber.
const (
	TagTemporary uint32 = 0
	TagTimes     uint32 = 1
	TagLimited   uint32 = 2
	TagPeriod    uint32 = 3
)

// Parameter field widths in bits, per variant (spec.md §4.4).
const (
	ParamBitsTemporary = 0
	ParamBitsTimes     = 5
	ParamBitsLimited   = 8
	ParamBitsPeriod    = 10
)

// Quantum lengths, in seconds, per variant.
const (
	QuantumTemporarySeconds = 4
	QuantumTimesSeconds     = 20 * 60
	QuantumLimitedSeconds   = 30 * 60
	QuantumPeriodSeconds    = 3600
)

// Validity spans and the derived tolerance window counts.
const (
	ValidityTemporary = 10 * time.Minute
	ValidityTimes     = 20 * time.Hour

	// ToleranceTemporaryWindows is ValidityTemporary / QuantumTemporarySeconds.
	ToleranceTemporaryWindows = int64(ValidityTemporary / time.Second / QuantumTemporarySeconds)

	// ToleranceTimesWindows is ValidityTimes / QuantumTimesSeconds.
	ToleranceTimesWindows = int64(ValidityTimes / time.Second / QuantumTimesSeconds)
)

// Times parameter range.
const (
	TimesMin = 1
	TimesMax = 31
)

// Limited parameter ranges.
const (
	LimitedHoursMax  = 127
	LimitedHalfStep  = 30 // minutes per half-hour unit encoded in the 'd' field
	LimitedDMin      = 1
	LimitedDMax      = 255
)

// PeriodReference is the fixed reference instant (midnight 2020-01-01,
// local UTC+8) that Period absolute-hour fields are relative to.
var PeriodReference = time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))

// PeriodWrapHours is the modulus of the Period absolute-hour field: 2^10.
const PeriodWrapHours = 1 << ParamBitsPeriod

// PeriodMaxFutureHours is the furthest a Period deadline may be requested
// ahead of "now": one less than the wrap modulus, so every requested
// deadline decodes unambiguously at generation time.
const PeriodMaxFutureHours = PeriodWrapHours - 1

// WireTagDigit is the literal leading digit every rendered password
// carries before its 32-bit ciphertext, stripped before decryption.
const WireTagDigit = '5'

// WireMinDigits is the minimum total length (tag digit + zero-padded
// ciphertext) of a legal rendered password.
const WireMinDigits = 10

// WireCiphertextMinDigits is the minimum zero-padded width of the decimal
// ciphertext portion of a rendered password.
const WireCiphertextMinDigits = 9
