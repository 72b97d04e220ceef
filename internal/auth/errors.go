package auth

import "errors"

// Verification failures surfaced to clients. Messages are returned verbatim.
var (
	ErrVerificationLimitExceeded = errors.New("OTP verification limit exceeded.")
	ErrVerificationTimedOut      = errors.New("OTP verification timed out.")
	ErrInvalidOtpCode            = errors.New("Invalid OTP code.")
)

// ErrInvalidToken is returned by TokenService.Validate for expired, malformed or wrongly signed tokens.
var ErrInvalidToken = errors.New("token is expired or invalid")
