package resource

import (
	"fmt"
	"time"
)

// Options configures a resource.
type Options struct {
	name       string
	staleTime  time.Duration
	retryCount int
	retryDelay time.Duration
	inline     bool

	initial    any
	hasInitial bool
	onSuccess  any
	onError    func(error)
}

// Option configures Options.
type Option func(*Options)

// Name sets the name used in logs, errors and telemetry.
func Name(name string) Option {
	return func(o *Options) {
		o.name = name
	}
}

// StaleTime sets how long a resolved value is fresh. Fetch skips the
// request while the value is fresh; Refetch always requests.
func StaleTime(d time.Duration) Option {
	return func(o *Options) {
		o.staleTime = d
	}
}

// RetryOnError retries a failed fetch count times, waiting delay between
// attempts.
func RetryOnError(count int, delay time.Duration) Option {
	return func(o *Options) {
		o.retryCount = count
		o.retryDelay = delay
	}
}

// Inline runs the fetcher synchronously on the runtime goroutine. Use it for
// fetchers that never block, such as in-memory feeds.
func Inline() Option {
	return func(o *Options) {
		o.inline = true
	}
}

// InitialValue starts the resource Ready with v.
func InitialValue[T any](v T) Option {
	return func(o *Options) {
		o.initial = v
		o.hasInitial = true
	}
}

// WithOnSuccess registers a callback run on the runtime goroutine after each
// committed value.
func WithOnSuccess[T any](fn func(T)) Option {
	return func(o *Options) {
		o.onSuccess = fn
	}
}

// WithOnError registers a callback run on the runtime goroutine after each
// committed failure.
func WithOnError(fn func(error)) Option {
	return func(o *Options) {
		o.onError = fn
	}
}

// typed resolves the options carrying values of the resource type.
func typed[T any](o *Options) (initial T, onSuccess func(T)) {
	if o.hasInitial {
		v, ok := o.initial.(T)
		if !ok {
			panic(fmt.Sprintf("resource: InitialValue of type %T used with resource of type %T", o.initial, initial))
		}
		initial = v
	}
	if o.onSuccess != nil {
		fn, ok := o.onSuccess.(func(T))
		if !ok {
			panic(fmt.Sprintf("resource: WithOnSuccess callback %T does not accept %T", o.onSuccess, initial))
		}
		onSuccess = fn
	}
	return initial, onSuccess
}
