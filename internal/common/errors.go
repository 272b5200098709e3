// Package common defines shared constants, sentinel errors and small helpers
// used by both the MoodKeeper client and the development relayer. Callers
// should use errors.Is to match the error values.
package common

import "errors"

var (
	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Keystore errors.
	ErrWrongPassword = errors.New("wrong password")
	ErrNoWallet      = errors.New("wallet not found")
)
