package trap

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNilProcedure indicates a Call without a procedure.
	ErrNilProcedure = errors.New("nil procedure")

	// ErrGuardShutdown indicates the guard has been shut down.
	ErrGuardShutdown = errors.New("guard shutdown")
)

// GuardError provides detailed error information for guard operations
// that fail outside the fault path (hook failures, usage errors).
type GuardError struct {
	// Op is the operation that failed.
	Op string

	// Call is the name of the call involved, if any.
	Call string

	// Err is the underlying error.
	Err error

	// Details provides human-readable details.
	Details string
}

// Error returns the error message.
func (e *GuardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Call, e.Details)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Call, e.Err)
}

// Unwrap returns the underlying error.
func (e *GuardError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *GuardError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// newHookError wraps a hook failure.
func newHookError(op, call string, err error) error {
	return &GuardError{
		Op:   op,
		Call: call,
		Err:  err,
	}
}
