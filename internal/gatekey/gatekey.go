// Package gatekey implements the UnifiedFacade described in spec.md §4.5:
// a single entry point that generates door-access passwords for any of the
// four request variants and verifies a password text against an admin key,
// auto-detecting which variant it was produced for.
package gatekey

import (
	"fmt"
	"time"

	"nekogate/internal/cipher"
	"nekogate/internal/clock"
	"nekogate/internal/codec"
	"nekogate/internal/keyderivation"
	"nekogate/internal/policy"
)

// Facade errors, per spec.md §7.
var (
	ErrInvalidKey          = keyderivation.ErrInvalidKey
	ErrParameterOutOfRange = codec.ErrParameterOutOfRange
	ErrDeadlineInPast      = codec.ErrDeadlineInPast
	ErrDeadlineTooFar      = codec.ErrDeadlineTooFar
	ErrMalformed           = codec.ErrMalformed
)

// RequestKind tags which of the four variants a Request carries.
type RequestKind int

// The four request kinds, in the fixed order Verify tries them.
const (
	KindTemporary RequestKind = iota
	KindTimes
	KindLimited
	KindPeriod
)

func (k RequestKind) String() string {
	switch k {
	case KindTemporary:
		return "temporary"
	case KindTimes:
		return "times"
	case KindLimited:
		return "limited"
	case KindPeriod:
		return "period"
	default:
		return "unknown"
	}
}

// Request is a tagged union over the four door-access request shapes.
// Exactly the fields relevant to Kind are meaningful.
type Request struct {
	Kind RequestKind

	// Times
	N int

	// Limited
	Hours   int
	Minutes int

	// Period
	Year, Month, Day, Hour int
}

// PasswordRecord is the value a successful Generate call returns. The core
// never persists it; a collaborator (internal/store) may.
type PasswordRecord struct {
	Text      string
	ExpiresAt time.Time
	Request   Request
}

// VerifyResult is the value a successful Verify call returns.
type VerifyResult struct {
	Request   Request
	Remaining time.Duration
}

// Generate produces a door-access password for request, under adminKey,
// as of clk.Now().
func Generate(adminKey string, request Request, clk clock.Clock) (PasswordRecord, error) {
	key, err := keyderivation.Derive(adminKey)
	if err != nil {
		return PasswordRecord{}, err
	}

	now := clk.Now()
	les := clock.LocalEpochSeconds(now)

	var plaintext uint32
	var expiresAt time.Time

	switch request.Kind {
	case KindTemporary:
		plaintext = codec.Temporary{}.Pack(les)
		window := les / policy.QuantumTemporarySeconds
		expiresAt = clock.FromLocalEpochSeconds(window*policy.QuantumTemporarySeconds).Add(policy.ValidityTemporary)

	case KindTimes:
		plaintext, err = codec.Times{N: request.N}.Pack(les)
		if err != nil {
			return PasswordRecord{}, err
		}
		window := les / policy.QuantumTimesSeconds
		expiresAt = clock.FromLocalEpochSeconds(window*policy.QuantumTimesSeconds).Add(policy.ValidityTimes)

	case KindLimited:
		lim := codec.Limited{Hours: request.Hours, Minutes: request.Minutes}
		plaintext, err = lim.Pack(les)
		if err != nil {
			return PasswordRecord{}, err
		}
		window := les / policy.QuantumLimitedSeconds
		duration := time.Duration(request.Hours)*time.Hour + time.Duration(request.Minutes)*time.Minute
		expiresAt = clock.FromLocalEpochSeconds(window * policy.QuantumLimitedSeconds).Add(duration)

	case KindPeriod:
		p := codec.Period{Year: request.Year, Month: request.Month, Day: request.Day, Hour: request.Hour}
		plaintext, err = p.Pack(les)
		if err != nil {
			return PasswordRecord{}, err
		}
		expiresAt = p.Deadline()

	default:
		return PasswordRecord{}, fmt.Errorf("gatekey: unknown request kind %v", request.Kind)
	}

	ciphertext := cipher.Encrypt(plaintext, key)
	return PasswordRecord{
		Text:      codec.Render(ciphertext),
		ExpiresAt: expiresAt,
		Request:   request,
	}, nil
}

// Verify decrypts passwordText under adminKey and, trying each variant in
// the fixed order Temporary, Times, Limited, Period, returns the first
// whose tag, parameters, and time-window validity all check out as of
// clk.Now(). ok is false for any malformed input or any input that does
// not currently verify under any variant — "wrong password" is never an
// error (spec.md §7).
func Verify(passwordText string, adminKey string, clk clock.Clock) (VerifyResult, bool, error) {
	key, err := keyderivation.Derive(adminKey)
	if err != nil {
		return VerifyResult{}, false, err
	}

	ciphertext, err := codec.Parse(passwordText)
	if err != nil {
		return VerifyResult{}, false, err
	}

	plaintext := cipher.Decrypt(ciphertext, key)
	now := clk.Now()
	les := clock.LocalEpochSeconds(now)

	if window, ok := codec.UnpackTemporary(plaintext, les); ok {
		windowStart := clock.FromLocalEpochSeconds(window * policy.QuantumTemporarySeconds)
		deadline := windowStart.Add(policy.ValidityTemporary)
		if now.Before(deadline) || now.Equal(deadline) {
			return VerifyResult{
				Request:   Request{Kind: KindTemporary},
				Remaining: deadline.Sub(now),
			}, true, nil
		}
	}

	if req, window, ok := codec.UnpackTimes(plaintext, les); ok {
		windowStart := clock.FromLocalEpochSeconds(window * policy.QuantumTimesSeconds)
		deadline := windowStart.Add(policy.ValidityTimes)
		if now.Before(deadline) || now.Equal(deadline) {
			return VerifyResult{
				Request:   Request{Kind: KindTimes, N: req.N},
				Remaining: deadline.Sub(now),
			}, true, nil
		}
	}

	if req, window, ok := codec.UnpackLimited(plaintext, les); ok {
		windowStart := clock.FromLocalEpochSeconds(window * policy.QuantumLimitedSeconds)
		duration := time.Duration(req.Hours)*time.Hour + time.Duration(req.Minutes)*time.Minute
		deadline := windowStart.Add(duration)
		if now.Before(deadline) || now.Equal(deadline) {
			return VerifyResult{
				Request:   Request{Kind: KindLimited, Hours: req.Hours, Minutes: req.Minutes},
				Remaining: deadline.Sub(now),
			}, true, nil
		}
	}

	if deadline, ok := codec.UnpackPeriod(plaintext, les); ok {
		if now.Before(deadline) {
			return VerifyResult{
				Request: Request{
					Kind:  KindPeriod,
					Year:  deadline.Year(),
					Month: int(deadline.Month()),
					Day:   deadline.Day(),
					Hour:  deadline.Hour(),
				},
				Remaining: deadline.Sub(now),
			}, true, nil
		}
	}

	return VerifyResult{}, false, nil
}

// RemainingTime is a convenience wrapper over Verify that returns only the
// remaining validity duration.
func RemainingTime(passwordText string, adminKey string, clk clock.Clock) (time.Duration, bool, error) {
	result, ok, err := Verify(passwordText, adminKey, clk)
	if err != nil || !ok {
		return 0, ok, err
	}
	return result.Remaining, true, nil
}
