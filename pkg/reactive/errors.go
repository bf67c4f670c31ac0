package reactive

import (
	"errors"
	"fmt"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
)

var (
	// ErrDisposed is returned when an operation targets a disposed owner.
	ErrDisposed = errors.New("reactive: owner disposed")

	// ErrNoOwner is returned when an operation needs an active owner.
	ErrNoOwner = errors.New("reactive: no active owner")

	// ErrBudgetExceeded is returned when a storm budget limit is exceeded.
	ErrBudgetExceeded = errors.New("reactive: storm budget exceeded")
)

// ComputationError reports a memo or effect body that panicked.
// It is raised synchronously out of the write or batch that triggered the
// flush. The failed computation stays stale and runs again on its next
// trigger.
type ComputationError struct {
	// Name is the computation name, or its kind when unnamed.
	Name string

	// Kind is "memo", "effect" or "computed".
	Kind string

	// Cause is the normalized panic value.
	Cause error

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("reactive: %s %q failed: %v", e.Kind, e.Name, e.Cause)
}

// Unwrap returns the cause.
func (e *ComputationError) Unwrap() error {
	return e.Cause
}

// Coded converts the error into its registered structured form.
func (e *ComputationError) Coded() *kerrors.CoreError {
	return kerrors.New("E101").
		WithDetailf("%s %q panicked", e.Kind, e.Name).
		Wrap(e.Cause)
}

// RunawayUpdateError is raised when a single flush executes more
// computations than the configured limit.
type RunawayUpdateError struct {
	// Limit is the configured maximum.
	Limit int

	// Last is the name of the computation that crossed the limit.
	Last string
}

// Error implements the error interface.
func (e *RunawayUpdateError) Error() string {
	return fmt.Sprintf("reactive: runaway update: more than %d computations in one flush (last %q)", e.Limit, e.Last)
}

// Coded converts the error into its registered structured form.
func (e *RunawayUpdateError) Coded() *kerrors.CoreError {
	return kerrors.New("E102").
		WithDetailf("more than %d computations ran in a single flush; %q crossed the limit", e.Limit, e.Last).
		WithSuggestion("read the value with Untracked or move the write out of the computation")
}

// PanicError wraps a panic value that was not an error.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("reactive: panic: %v", e.Value)
}

// normalizePanic turns a recovered value into an error.
func normalizePanic(r any) error {
	switch v := r.(type) {
	case error:
		return v
	case string:
		return errors.New(v)
	default:
		return &PanicError{Value: r}
	}
}

// isGraphPanic reports whether r was raised by the runtime itself and must
// travel through outer computations unchanged.
func isGraphPanic(r any) bool {
	switch r.(type) {
	case *ComputationError, *RunawayUpdateError:
		return true
	}
	return false
}
