package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryReactive  Category = "reactive"
	CategoryResource  Category = "resource"
	CategoryReconcile Category = "reconcile"
	CategoryConfig    Category = "config"
	CategoryBridge    Category = "bridge"
	CategoryCLI       Category = "cli"
	CategoryData      Category = "datafeed"
)

// CoreError is a structured error with a code, category and optional cause.
type CoreError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (reactive, resource, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *CoreError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a CoreError with the same code.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *CoreError) WithSuggestion(s string) *CoreError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *CoreError) WithDetail(d string) *CoreError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detailed explanation to the error.
func (e *CoreError) WithDetailf(format string, args ...any) *CoreError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *CoreError) Wrap(err error) *CoreError {
	e.Wrapped = err
	return e
}

// New creates a CoreError from a registered error code.
func New(code string) *CoreError {
	template, ok := GetTemplate(code)
	if !ok {
		return &CoreError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &CoreError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new CoreError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *CoreError {
	return &CoreError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a CoreError.
func FromError(err error, code string) *CoreError {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CoreError); ok {
		return ce
	}
	return New(code).Wrap(err)
}
