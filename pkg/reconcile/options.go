package reconcile

import "fmt"

// Options configures Map.
type Options struct {
	name       string
	fallback   any
	sink       any
	itemEquals any
}

// Option configures Options.
type Option func(*Options)

// Name sets the name of the list's memo, reported in errors and logs.
func Name(name string) Option {
	return func(o *Options) {
		o.name = name
	}
}

// WithFallback maps a placeholder shown while the list is empty. The
// placeholder gets its own owner, disposed when items come back.
func WithFallback[U any](fn func() U) Option {
	return func(o *Options) {
		o.fallback = fn
	}
}

// WithSink forwards every op to s as it is computed.
func WithSink[K comparable, U any](s Sink[K, U]) Option {
	return func(o *Options) {
		o.sink = s
	}
}

// WithItemEquals sets the comparator deciding whether a kept item changed.
// A change updates the item getter and emits an update op.
func WithItemEquals[T any](fn func(a, b T) bool) Option {
	return func(o *Options) {
		o.itemEquals = fn
	}
}

func typedOption[F any](v any, what string) F {
	var zero F
	if v == nil {
		return zero
	}
	f, ok := v.(F)
	if !ok {
		panic(fmt.Sprintf("reconcile: %s option %T does not match %T", what, v, zero))
	}
	return f
}
