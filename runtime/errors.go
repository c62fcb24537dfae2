package runtime

import "fmt"

// CheckoutError wraps a failure to reserve a connection from the pool. It is
// distinct from statement errors so callers can retry acquisition without
// inspecting SQL state.
type CheckoutError struct {
	Err error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("failed to check out a connection: %v", e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// StepError reports the first failing statement of a plan application: its
// zero-based index, the statement text and the driver error.
type StepError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration step %d failed: %v\nstatement: %s", e.Index, e.Err, e.Statement)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
