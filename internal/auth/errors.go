package auth

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated means no valid session. It is an expected outcome, not a fault.
var ErrUnauthenticated = errors.New("unauthenticated")

// InfraError wraps a store fault hit while resolving a session. Callers must
// not treat it as a missing session.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

func IsInfraError(err error) bool {
	var infra *InfraError
	return errors.As(err, &infra)
}
