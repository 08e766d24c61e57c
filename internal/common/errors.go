// Package common defines shared constants and sentinel errors used across
// client and server layers of MedKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Registry errors reported to callers of mutating and read operations.
	ErrorArgumentMismatch = errors.New("providers and keys length mismatch")
	ErrorRecordNotFound   = errors.New("record not found")
	ErrorUnauthorized     = errors.New("unauthorized")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Client-side integrity errors.
	ErrDigestMismatch = errors.New("content digest mismatch")
	ErrNoKey          = errors.New("no key for caller")
)
