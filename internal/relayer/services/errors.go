package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/invisibledrop/internal/fhe"
)

// PolicyError is a refused request. Code is one of the fhe.Code* values
// returned to the client.
type PolicyError struct {
	Code string
	Err  error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *PolicyError) Unwrap() error { return e.Err }

func refuse(code string, format string, args ...any) error {
	return &PolicyError{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf returns the wire code for err, fhe.CodeInternal when err is not a
// *PolicyError.
func CodeOf(err error) string {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return fhe.CodeInternal
}
