package resource

import (
	"fmt"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
)

// FetchError is stored in the resource when a request fails. It is never
// raised through the graph.
type FetchError struct {
	// Name is the resource name.
	Name string

	// Attempts is how many times the fetcher ran.
	Attempts int

	// Cause is the last fetcher error.
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("resource %s: fetch failed after %d attempts: %v", e.Name, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("resource %s: fetch failed: %v", e.Name, e.Cause)
}

// Unwrap returns the cause.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Coded converts the error into its registered structured form.
func (e *FetchError) Coded() *kerrors.CoreError {
	return kerrors.New("E201").
		WithDetailf("resource %q failed after %d attempt(s)", e.Name, e.Attempts).
		Wrap(e.Cause)
}
