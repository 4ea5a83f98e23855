// Package codec packs and unpacks the four door-access request variants
// into and out of the 32-bit plaintext that internal/cipher encrypts.
//
// Every variant shares the layout from spec.md §4.4:
//
//	[tag: 2 bits][parameter: k bits][time-window: (30-k) bits]
//
// and is modeled as a small Variant implementation, matching spec.md §9's
// guidance that a shared interface — not an inheritance hierarchy — is the
// right pattern across languages for a tagged sum of request shapes.
package codec

// Variant is the common shape every request type implements: its tag,
// parameter field width and window quantum. Packing and unpacking are
// per-variant methods and functions, not part of this interface.
type Variant interface {
	// Tag returns this variant's 2-bit tag value.
	Tag() uint32

	// ParamBits returns the width, in bits, of this variant's parameter
	// field.
	ParamBits() uint

	// Quantum returns this variant's time-window quantum, in seconds.
	Quantum() int64
}

// windowBits returns the width of the time-window field for a variant with
// the given parameter field width.
func windowBits(paramBits uint) uint {
	return 30 - paramBits
}

// pack assembles the 32-bit plaintext from a tag, parameter value, and
// window value, per the shared bit layout.
func pack(tag uint32, paramBits uint, param uint32, window uint32) uint32 {
	wBits := windowBits(paramBits)
	paramMask := uint32(1)<<paramBits - 1
	windowMask := uint32(1)<<wBits - 1
	return (tag << 30) | ((param & paramMask) << wBits) | (window & windowMask)
}

// unpack splits a 32-bit plaintext into its tag, parameter, and window
// fields given a parameter field width.
func unpack(plaintext uint32, paramBits uint) (tag uint32, param uint32, window uint32) {
	wBits := windowBits(paramBits)
	windowMask := uint32(1)<<wBits - 1
	paramMask := uint32(1)<<paramBits - 1
	tag = plaintext >> 30
	param = (plaintext >> wBits) & paramMask
	window = plaintext & windowMask
	return
}

// quantumWindow floors a local-epoch-second timestamp to its quantum index.
func quantumWindow(localEpochSeconds int64, quantumSeconds int64) int64 {
	return localEpochSeconds / quantumSeconds
}

// nearestMatchingWindow searches windows at offsets [0, tolerance] before
// nowWindow (most recent first) for one whose low wBits bits equal field.
// It returns the matching absolute window and true, or false if none of the
// searched windows match. Ties are impossible within a single offset sweep
// since offsets are tried in increasing order and the first (most recent)
// match wins, matching spec.md §4.4's tie-break rule.
func nearestMatchingWindow(nowWindow int64, tolerance int64, wBits uint, field uint32) (int64, bool) {
	mask := uint32(1)<<wBits - 1
	for offset := int64(0); offset <= tolerance; offset++ {
		candidate := nowWindow - offset
		if candidate < 0 {
			break
		}
		if uint32(candidate)&mask == field {
			return candidate, true
		}
	}
	return 0, false
}

// nearestCongruentAbsolute finds, among integers congruent to field modulo
// 2^wBits, the one closest to pivot. Ties (pivot exactly equidistant
// between two candidates) resolve to the later (larger) candidate, per
// spec.md §4.4's Period tie-break rule.
func nearestCongruentAbsolute(pivot int64, wBits uint, field uint32) int64 {
	modulus := int64(1) << wBits
	base := (pivot / modulus) * modulus
	best := base + int64(field)
	bestDist := abs64(pivot - best)
	for _, delta := range []int64{-modulus, modulus} {
		candidate := base + int64(field) + delta
		dist := abs64(pivot - candidate)
		if dist < bestDist || (dist == bestDist && candidate > best) {
			best = candidate
			bestDist = dist
		}
	}
	return best
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
