// Package tpmseal protects the gate daemon's admin key at rest.
//
// The admin key signs every password request: anyone who reads it off disk
// can mint their own valid door codes. Sealer wraps the key so the bytes on
// disk are useless without either the TPM that sealed them or the
// machine-local secret the software fallback derives from.
package tpmseal

import "errors"

// ErrNotAvailable is returned by a Sealer whose backing mechanism (TPM
// device, machine secret) cannot be reached.
var ErrNotAvailable = errors.New("tpmseal: sealing mechanism not available")

// ErrCorrupted is returned when sealed data fails to authenticate during
// Unseal, meaning it was truncated, tampered with, or sealed by a different
// key/device.
var ErrCorrupted = errors.New("tpmseal: sealed data failed to authenticate")

// Sealer wraps short secrets (the admin key) so they are unusable outside
// the device or secret that sealed them.
type Sealer interface {
	// Available reports whether this Sealer's backing mechanism is usable
	// right now.
	Available() bool

	// Seal wraps data, returning an opaque blob safe to persist to disk.
	Seal(data []byte) ([]byte, error)

	// Unseal reverses Seal. Returns ErrCorrupted if sealed fails to
	// authenticate.
	Unseal(sealed []byte) ([]byte, error)

	// Close releases any resources (TPM handles, file descriptors) held by
	// the Sealer.
	Close() error
}

// Select picks a Sealer for the current configuration and platform: a
// Linux TPM 2.0 device when tpmEnabled is true and one is reachable,
// otherwise the HKDF-wrapped software fallback rooted at secretDir.
func Select(tpmEnabled bool, secretDir string) (Sealer, error) {
	if tpmEnabled {
		if s := newLinuxSealer(); s != nil && s.Available() {
			return s, nil
		}
	}
	return NewSoftwareSealer(secretDir)
}
