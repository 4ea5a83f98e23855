package keyderivation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveValidLengths(t *testing.T) {
	for _, s := range []string{"1234", "123456", "1234567890"} {
		k, err := Derive(s)
		require.NoError(t, err)
		assert.NotZero(t, k)
	}
}

func TestDeriveRejectsShortAndLong(t *testing.T) {
	_, err := Derive("123")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = Derive("12345678901")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDeriveRejectsNonDigits(t *testing.T) {
	_, err := Derive("12a4")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDeriveDeterministic(t *testing.T) {
	a, err := Derive("123456")
	require.NoError(t, err)
	b, err := Derive("123456")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveLeadingZeroSignificant(t *testing.T) {
	a, err := Derive("0001234")
	require.NoError(t, err)
	b, err := Derive("1234")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriveDifferingDigitsDiffer(t *testing.T) {
	seen := map[uint64]string{}
	for _, s := range []string{"123456", "123457", "223456", "654321", "111111", "999999"} {
		k, err := Derive(s)
		require.NoError(t, err)
		if prior, ok := seen[k]; ok {
			t.Fatalf("admin keys %q and %q collided on derived key", prior, s)
		}
		seen[k] = s
	}
}
