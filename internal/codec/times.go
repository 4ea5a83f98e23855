package codec

import (
	"errors"
	"time"

	"nekogate/internal/policy"
)

// ErrParameterOutOfRange is returned when a variant's parameters fall
// outside their legal range.
var ErrParameterOutOfRange = errors.New("codec: parameter out of range")

// Times is the count-limited request variant: valid for ValidityTimes,
// carrying the number of uses n the door controller should allow.
type Times struct {
	N int
}

func (Times) Tag() uint32     { return policy.TagTimes }
func (Times) ParamBits() uint { return policy.ParamBitsTimes }
func (Times) Quantum() int64  { return policy.QuantumTimesSeconds }

// Pack assembles the Times plaintext for a code emitted at
// localEpochSeconds. It returns ErrParameterOutOfRange if N is outside
// [policy.TimesMin, policy.TimesMax].
func (t Times) Pack(localEpochSeconds int64) (uint32, error) {
	if t.N < policy.TimesMin || t.N > policy.TimesMax {
		return 0, ErrParameterOutOfRange
	}
	window := quantumWindow(localEpochSeconds, t.Quantum())
	return pack(t.Tag(), t.ParamBits(), uint32(t.N-1), uint32(window)), nil
}

// UnpackTimes recovers the emitted Times request and its emission window
// from plaintext, searching back from nowLocalEpochSeconds up to the
// validity tolerance.
func UnpackTimes(plaintext uint32, nowLocalEpochSeconds int64) (req Times, windowStart int64, ok bool) {
	tag, param, field := unpack(plaintext, policy.ParamBitsTimes)
	if tag != policy.TagTimes {
		return Times{}, 0, false
	}
	n := int(param) + 1
	if n < policy.TimesMin || n > policy.TimesMax {
		return Times{}, 0, false
	}
	nowWindow := quantumWindow(nowLocalEpochSeconds, policy.QuantumTimesSeconds)
	wBits := windowBits(policy.ParamBitsTimes)
	window, found := nearestMatchingWindow(nowWindow, policy.ToleranceTimesWindows, wBits, field)
	if !found {
		return Times{}, 0, false
	}
	deadline := window*policy.QuantumTimesSeconds + int64(policy.ValidityTimes/time.Second)
	if nowLocalEpochSeconds > deadline {
		return Times{}, 0, false
	}
	return Times{N: n}, window, true
}
