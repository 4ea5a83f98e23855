package codec

import (
	"errors"
	"fmt"
	"strconv"

	"nekogate/internal/policy"
)

// ErrMalformed is returned when a password string is not a legal wire
// rendering: fewer than policy.WireMinDigits characters, not starting with
// policy.WireTagDigit, or with a remainder that does not parse as an
// unsigned 32-bit decimal integer.
var ErrMalformed = errors.New("codec: malformed password text")

// Render renders a 32-bit ciphertext as the decimal wire format: the
// literal tag digit '5' followed by the ciphertext zero-padded to at least
// policy.WireCiphertextMinDigits digits.
func Render(ciphertext uint32) string {
	return fmt.Sprintf("%c%0*d", policy.WireTagDigit, policy.WireCiphertextMinDigits, ciphertext)
}

// Parse recovers the 32-bit ciphertext from a rendered password string,
// returning ErrMalformed if the string is not a legal wire rendering.
func Parse(text string) (uint32, error) {
	if len(text) < policy.WireMinDigits {
		return 0, ErrMalformed
	}
	if text[0] != policy.WireTagDigit {
		return 0, ErrMalformed
	}
	v, err := strconv.ParseUint(text[1:], 10, 32)
	if err != nil {
		return 0, ErrMalformed
	}
	return uint32(v), nil
}
