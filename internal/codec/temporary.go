package codec

import (
	"time"

	"nekogate/internal/policy"
)

// Temporary is the single-use/short-lived request variant: no parameters,
// valid for ValidityTemporary after the window it was emitted in.
type Temporary struct{}

func (Temporary) Tag() uint32     { return policy.TagTemporary }
func (Temporary) ParamBits() uint { return policy.ParamBitsTemporary }
func (Temporary) Quantum() int64  { return policy.QuantumTemporarySeconds }

// Pack assembles the Temporary plaintext for a code emitted at
// localEpochSeconds.
func (t Temporary) Pack(localEpochSeconds int64) uint32 {
	window := quantumWindow(localEpochSeconds, t.Quantum())
	return pack(t.Tag(), t.ParamBits(), 0, uint32(window))
}

// UnpackTemporary recovers the emission window of a Temporary plaintext by
// searching back from nowLocalEpochSeconds up to the validity tolerance.
// ok is false if the plaintext's tag does not match Temporary or no window
// in range matches.
func UnpackTemporary(plaintext uint32, nowLocalEpochSeconds int64) (windowStart int64, ok bool) {
	tag, _, field := unpack(plaintext, policy.ParamBitsTemporary)
	if tag != policy.TagTemporary {
		return 0, false
	}
	nowWindow := quantumWindow(nowLocalEpochSeconds, policy.QuantumTemporarySeconds)
	wBits := windowBits(policy.ParamBitsTemporary)
	window, found := nearestMatchingWindow(nowWindow, policy.ToleranceTemporaryWindows, wBits, field)
	if !found {
		return 0, false
	}
	deadline := window*policy.QuantumTemporarySeconds + int64(policy.ValidityTemporary/time.Second)
	if nowLocalEpochSeconds > deadline {
		return 0, false
	}
	return window, true
}
