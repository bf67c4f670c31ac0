// Package errors provides coded, categorized errors for klinecore.
//
// Every failure the runtime can surface to a collaborator carries a short
// code (e.g. "E101") that maps to a registered template with a message and a
// longer explanation:
//
//   - reactive: computation failures and runaway flushes
//   - resource: fetcher failures captured into a resource
//   - reconcile: sequence reconciliation misuse
//   - config: malformed or invalid configuration files
//   - bridge: renderer transport failures
//   - cli: command line usage errors
//
// # Usage
//
//	err := errors.New("E101").
//	    WithDetail("memo \"spread\" panicked").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Computation failed
//	//
//	//   memo "spread" panicked
//	//
//	//   Caused by: division by zero
//
// Errors created here support errors.Is / errors.As through Unwrap.
package errors
