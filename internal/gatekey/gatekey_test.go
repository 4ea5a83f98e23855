package gatekey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nekogate/internal/clock"
)

func fixedClockAt(y, mo, d, h, mi, s int) clock.Fixed {
	return clock.Fixed{At: time.Date(y, time.Month(mo), d, h, mi, s, 0, clock.Location)}
}

const adminKey = "123456"

func TestGenerateTemporaryThenVerify(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)

	rec, err := Generate(adminKey, Request{Kind: KindTemporary}, clk)
	require.NoError(t, err)
	assert.True(t, len(rec.Text) >= 10)
	assert.Equal(t, byte('5'), rec.Text[0])

	result, ok, err := Verify(rec.Text, adminKey, clk)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindTemporary, result.Request.Kind)
	assert.LessOrEqual(t, result.Remaining, 10*time.Minute)
}

func TestGenerateTimesThenVerifyAndExpire(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)

	rec, err := Generate(adminKey, Request{Kind: KindTimes, N: 5}, clk)
	require.NoError(t, err)

	result, ok, err := Verify(rec.Text, adminKey, clk)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, result.Request.N)
	assert.LessOrEqual(t, result.Remaining, 20*time.Hour)

	late := clock.Fixed{At: clk.At.Add(20*time.Hour + time.Minute)}
	_, ok, err = Verify(rec.Text, adminKey, late)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateLimitedExpiryString(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)

	rec, err := Generate(adminKey, Request{Kind: KindLimited, Hours: 2, Minutes: 30}, clk)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01 14:30:00", clock.Format(rec.ExpiresAt))

	present := clock.Fixed{At: clk.At.Add(2*time.Hour + 29*time.Minute)}
	_, ok, err := Verify(rec.Text, adminKey, present)
	require.NoError(t, err)
	assert.True(t, ok)

	absent := clock.Fixed{At: clk.At.Add(2*time.Hour + 31*time.Minute)}
	_, ok, err = Verify(rec.Text, adminKey, absent)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGeneratePeriodExpiryString(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)

	rec, err := Generate(adminKey, Request{Kind: KindPeriod, Year: 2024, Month: 6, Day: 2, Hour: 9}, clk)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02 09:00:00", clock.Format(rec.ExpiresAt))

	present := clock.Fixed{At: time.Date(2024, 6, 2, 8, 59, 59, 0, clock.Location)}
	_, ok, err := Verify(rec.Text, adminKey, present)
	require.NoError(t, err)
	assert.True(t, ok)

	absent := clock.Fixed{At: time.Date(2024, 6, 2, 9, 0, 1, 0, clock.Location)}
	_, ok, err = Verify(rec.Text, adminKey, absent)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGeneratePeriodDeadlineInPast(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)
	_, err := Generate(adminKey, Request{Kind: KindPeriod, Year: 2020, Month: 1, Day: 1, Hour: 0}, clk)
	assert.ErrorIs(t, err, ErrDeadlineInPast)
}

func TestVerifyZeroPasswordAbsent(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)
	_, ok, err := Verify("5000000000", adminKey, clk)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMalformedPassword(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)
	_, _, err := Verify("abc", adminKey, clk)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGenerateInvalidAdminKey(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)
	_, err := Generate("12", Request{Kind: KindTemporary}, clk)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeyIsolation(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)
	rec, err := Generate(adminKey, Request{Kind: KindTimes, N: 3}, clk)
	require.NoError(t, err)

	collisions := 0
	for i := 0; i < 100; i++ {
		other := "654321"
		if i%2 == 0 {
			other = "111111"
		}
		_, ok, err := Verify(rec.Text, other, clk)
		require.NoError(t, err)
		if ok {
			collisions++
		}
	}
	assert.Zero(t, collisions)
}

func TestDeterministicGeneration(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)
	a, err := Generate(adminKey, Request{Kind: KindLimited, Hours: 1, Minutes: 0}, clk)
	require.NoError(t, err)
	b, err := Generate(adminKey, Request{Kind: KindLimited, Hours: 1, Minutes: 0}, clk)
	require.NoError(t, err)
	assert.Equal(t, a.Text, b.Text)
}

func TestTagExclusivity(t *testing.T) {
	clk := fixedClockAt(2024, 6, 1, 12, 0, 0)
	variants := []Request{
		{Kind: KindTemporary},
		{Kind: KindTimes, N: 10},
		{Kind: KindLimited, Hours: 5, Minutes: 0},
		{Kind: KindPeriod, Year: 2024, Month: 6, Day: 5, Hour: 10},
	}

	for _, v := range variants {
		rec, err := Generate(adminKey, v, clk)
		require.NoError(t, err)
		result, ok, err := Verify(rec.Text, adminKey, clk)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, v.Kind, result.Request.Kind)
	}
}
