//go:build !linux

// No TPM transport is wired for non-Linux platforms: the gate daemon targets
// embedded Linux door controllers, so Select falls back to the software
// Sealer everywhere else.
package tpmseal

// Linux is declared here only so package-level references type-check on
// non-Linux platforms; newLinuxSealer never constructs one.
type Linux struct{}

func (*Linux) Available() bool                    { return false }
func (*Linux) Seal(data []byte) ([]byte, error)    { return nil, ErrNotAvailable }
func (*Linux) Unseal(sealed []byte) ([]byte, error) { return nil, ErrNotAvailable }
func (*Linux) Close() error                        { return nil }

func newLinuxSealer() *Linux { return nil }
