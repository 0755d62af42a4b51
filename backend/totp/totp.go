// Package totp wraps time-based one-time-code generation and verification.
// Codes are 6 digits over 30-second steps; verification tolerates clock
// drift of a configurable number of steps on either side.
package totp

import (
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Period is the code rotation interval in seconds.
const Period = 30

// Window is the step tolerance used everywhere in the app: the previous,
// current and next step are all accepted.
const Window = 1

// ErrInvalidSecret is returned when a secret does not decode as base32.
// Callers treat it the same as a failed match.
var ErrInvalidSecret = errors.New("totp: secret is not valid base32")

func opts(skew uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Generate returns the 6-digit code for the secret at the given instant.
func Generate(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, opts(0))
	if err != nil {
		if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
			return "", ErrInvalidSecret
		}
		return "", err
	}
	return code, nil
}

// Verify reports whether code matches the secret at any step within ±window
// of the given instant. The underlying comparison is constant-time. A code
// of the wrong shape is simply not a match; a malformed secret is reported
// as ErrInvalidSecret.
func Verify(secret, code string, window uint, at time.Time) (bool, error) {
	ok, err := totp.ValidateCustom(code, secret, at, opts(window))
	if err != nil {
		if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
			return false, ErrInvalidSecret
		}
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// ValidSecret reports whether secret decodes as base32 the same way the
// verifier decodes it (case-insensitive, padding optional).
func ValidSecret(secret string) bool {
	s := strings.TrimRight(strings.ToUpper(strings.TrimSpace(secret)), "=")
	_, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	return err == nil
}
