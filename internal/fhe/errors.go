package fhe

import (
	"errors"
	"fmt"
)

// Decryption failure reasons. Every one is retried by running the whole
// handshake again with a fresh keypair.
var (
	ErrNoResult           = errors.New("no result for handle")
	ErrSignatureRejected  = errors.New("signature rejected")
	ErrGrantExpired       = errors.New("decryption grant expired")
	ErrAccessDenied       = errors.New("access denied")
	ErrServiceUnavailable = errors.New("decryption service unavailable")
)

// DecryptionError is returned by every failed decrypt. errors.Is matches both
// the Reason sentinel and the underlying cause.
type DecryptionError struct {
	Reason error
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decrypt: %v", e.Reason)
	}
	return fmt.Sprintf("decrypt: %v: %v", e.Reason, e.Err)
}

func (e *DecryptionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func decryptionError(reason, err error) error {
	var de *DecryptionError
	if errors.As(err, &de) {
		return de
	}
	return &DecryptionError{Reason: reason, Err: err}
}
