package probe

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownModule   = errors.New("module is not registered")
	ErrModuleDisabled  = errors.New("module is disabled")
	ErrNoResourceStore = errors.New("no resource store configured")
	ErrProbeTimeout    = errors.New("probe timed out")
	ErrProbePanic      = errors.New("probe panicked")
)

// CheckError is the failure of a single named check.
type CheckError struct {
	Check string
	Err   error
}

func (e CheckError) Error() string {
	return fmt.Sprintf("check %s failed: %v", e.Check, e.Err)
}

func (e CheckError) Unwrap() error {
	return e.Err
}
