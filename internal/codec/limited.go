package codec

import "nekogate/internal/policy"

// Limited is the duration-limited request variant: valid from its emission
// window through emission + (Hours*60 + Minutes) minutes. The duration
// itself travels inside the code as the half-hour count d = 2*Hours +
// Minutes/30, which conveniently also equals the number of quanta the code
// stays valid for.
type Limited struct {
	Hours   int
	Minutes int
}

func (Limited) Tag() uint32     { return policy.TagLimited }
func (Limited) ParamBits() uint { return policy.ParamBitsLimited }
func (Limited) Quantum() int64  { return policy.QuantumLimitedSeconds }

// halfHours converts (Hours, Minutes) to the half-hour count d, or 0, false
// if the pair is not legal.
func (l Limited) halfHours() (uint32, bool) {
	if l.Hours < 0 || l.Hours > policy.LimitedHoursMax {
		return 0, false
	}
	if l.Minutes != 0 && l.Minutes != policy.LimitedHalfStep {
		return 0, false
	}
	if l.Hours == 0 && l.Minutes == 0 {
		return 0, false
	}
	d := uint32(l.Hours*2) + uint32(l.Minutes/policy.LimitedHalfStep)
	return d, true
}

// Pack assembles the Limited plaintext for a code emitted at
// localEpochSeconds. It returns ErrParameterOutOfRange if (Hours, Minutes)
// is not legal.
func (l Limited) Pack(localEpochSeconds int64) (uint32, error) {
	d, ok := l.halfHours()
	if !ok {
		return 0, ErrParameterOutOfRange
	}
	window := quantumWindow(localEpochSeconds, l.Quantum())
	return pack(l.Tag(), l.ParamBits(), d, uint32(window)), nil
}

// UnpackLimited recovers the emitted Limited request and its emission
// window from plaintext. A Limited code's own duration determines how far
// back the emission window search must reach, so the tolerance is the
// decoded d rather than a fixed constant.
func UnpackLimited(plaintext uint32, nowLocalEpochSeconds int64) (req Limited, windowStart int64, ok bool) {
	tag, d, field := unpack(plaintext, policy.ParamBitsLimited)
	if tag != policy.TagLimited {
		return Limited{}, 0, false
	}
	if d < policy.LimitedDMin || d > uint32(policy.LimitedDMax) {
		return Limited{}, 0, false
	}
	hours := int(d / 2)
	minutes := policy.LimitedHalfStep * int(d%2)

	nowWindow := quantumWindow(nowLocalEpochSeconds, policy.QuantumLimitedSeconds)
	wBits := windowBits(policy.ParamBitsLimited)
	window, found := nearestMatchingWindow(nowWindow, int64(d), wBits, field)
	if !found {
		return Limited{}, 0, false
	}
	deadline := (window + int64(d)) * policy.QuantumLimitedSeconds
	if nowLocalEpochSeconds > deadline {
		return Limited{}, 0, false
	}
	return Limited{Hours: hours, Minutes: minutes}, window, true
}
