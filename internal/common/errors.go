// Package common defines sentinel errors shared by the client and relayer
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository / lookup errors.
	ErrorNotFound = errors.New("not found")

	// Claim flow errors. These are derived from state, never retried.
	ErrNotEligible    = errors.New("not eligible")
	ErrAlreadyClaimed = errors.New("already claimed")
	ErrClaimInFlight  = errors.New("claim already in flight")

	// Signer errors.
	ErrReadOnly = errors.New("read-only signer")

	// Auth errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
)
