package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vango-dev/klinecore/pkg/reactive"
)

// Fetcher loads the value for key. ctx is cancelled when the resource's
// owner is disposed.
type Fetcher[K comparable, T any] func(ctx context.Context, key K) (T, error)

// FetchStats describes one finished request.
type FetchStats struct {
	Name       string
	Start      time.Time
	Duration   time.Duration
	Attempts   int
	Err        error
	Superseded bool
}

// Observer receives resource events. A runtime observer that also
// implements Observer is notified automatically.
type Observer interface {
	FetchStarted(name string)
	FetchCompleted(FetchStats)
}

var errSuperseded = errors.New("resource: request superseded")

// Resource holds the latest result of an asynchronous fetch keyed by a
// reactive source.
//
// All methods must be called on the runtime goroutine.
type Resource[K comparable, T any] struct {
	rt      *reactive.Runtime
	name    string
	fetcher Fetcher[K, T]
	opts    Options

	state *reactive.Signal[State]
	value *reactive.Signal[T]
	err   *reactive.Signal[error]

	onSuccess func(T)
	observer  Observer

	// token identifies the latest request. It is read by fetch goroutines
	// to stop retrying once superseded.
	token atomic.Uint64

	key       K
	hasKey    bool
	resolved  bool
	lastFetch time.Time

	ctx    context.Context
	cancel context.CancelFunc
	stops  []func()
	source interface{ Dispose() }
}

type sourceKey[K comparable] struct {
	key K
	ok  bool
}

// New creates a resource that fetches whenever source yields a new key.
// source returning ok=false means there is nothing to fetch; the resource
// keeps its value and settles to Ready or Unresolved.
//
// The resource and its source tracking belong to the current owner. Disposing
// the owner cancels in-flight fetch contexts and drops their results.
func New[K comparable, T any](rt *reactive.Runtime, source func() (K, bool), fetcher Fetcher[K, T], opts ...Option) *Resource[K, T] {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	initial, onSuccess := typed[T](&o)

	r := &Resource[K, T]{
		rt:        rt,
		name:      o.name,
		fetcher:   fetcher,
		opts:      o,
		onSuccess: onSuccess,
		resolved:  o.hasInitial,
	}
	if r.name == "" {
		r.name = "resource"
	}
	if obs, ok := rt.Observer().(Observer); ok {
		r.observer = obs
	}

	start := Unresolved
	if o.hasInitial {
		start = Ready
	}
	r.state = reactive.NewSignal(rt, start)
	r.value = reactive.NewSignal(rt, initial)
	r.err = reactive.NewSignal[error](rt, nil)

	r.ctx, r.cancel = context.WithCancel(context.Background())
	if owner := rt.Owner(); owner != nil {
		owner.OnCleanup(r.Dispose)
	}

	keyMemo := reactive.NewNamedMemo(rt, r.name+".source", func() sourceKey[K] {
		k, ok := source()
		return sourceKey[K]{key: k, ok: ok}
	})
	r.source = keyMemo
	rt.Computed(func() {
		sk := keyMemo.Get()
		rt.Untracked(func() {
			if r.ctx.Err() != nil {
				return
			}
			if !sk.ok {
				r.hasKey = false
				r.idle()
				return
			}
			r.key, r.hasKey = sk.key, true
			r.load(sk.key)
		})
	})
	return r
}

// NewStatic creates a resource without a source. It fetches once on
// creation and again on every Refetch.
func NewStatic[T any](rt *reactive.Runtime, fetcher func(ctx context.Context) (T, error), opts ...Option) *Resource[struct{}, T] {
	return New(rt,
		func() (struct{}, bool) { return struct{}{}, true },
		func(ctx context.Context, _ struct{}) (T, error) { return fetcher(ctx) },
		opts...)
}

// Dispose cancels in-flight fetch contexts, stops refresh schedules,
// stops tracking the source and drops every pending result. The state is
// left as it was. Resources created under an owner are disposed
// with it.
func (r *Resource[K, T]) Dispose() {
	if r.ctx.Err() != nil {
		return
	}
	r.cancel()
	r.token.Add(1)
	for _, stop := range r.stops {
		stop()
	}
	r.stops = nil
	if r.source != nil {
		r.source.Dispose()
	}
}

// Get returns the value. The error is returned only while the resource is
// Errored and has never resolved; once a value exists a failed refresh keeps
// serving it and the failure is reported by Error and State. Reading
// subscribes the running computation.
func (r *Resource[K, T]) Get() (T, error) {
	s := r.state.Get()
	v := r.value.Get()
	if s == Errored && !r.resolved {
		return v, r.err.Get()
	}
	return v, nil
}

// Latest returns the last resolved value, even while refreshing or errored.
func (r *Resource[K, T]) Latest() T {
	return r.value.Get()
}

// State returns the current state.
func (r *Resource[K, T]) State() State {
	return r.state.Get()
}

// Loading reports whether a request is in flight.
func (r *Resource[K, T]) Loading() bool {
	return r.state.Get().Loading()
}

// Error returns the error of the last failed request, or nil.
func (r *Resource[K, T]) Error() error {
	return r.err.Get()
}

// Key returns the key of the current request.
func (r *Resource[K, T]) Key() (K, bool) {
	return r.key, r.hasKey
}

// Refetch requests the current key again. Any in-flight request is
// superseded. It does nothing while the source yields no key.
func (r *Resource[K, T]) Refetch() {
	if !r.hasKey || r.ctx.Err() != nil {
		return
	}
	r.load(r.key)
}

// Fetch is Refetch unless the resource is Ready and younger than its
// StaleTime.
func (r *Resource[K, T]) Fetch() {
	if r.state.Peek() == Ready && time.Since(r.lastFetch) < r.opts.staleTime {
		return
	}
	r.Refetch()
}

// Mutate stores v as the resolved value and marks the resource Ready.
// In-flight requests still commit when they finish.
func (r *Resource[K, T]) Mutate(v T) {
	r.batch(func() {
		r.resolved = true
		r.value.Set(v)
		r.err.Set(nil)
		r.state.Set(next(r.state.Peek(), eventResolve, true))
	})
}

func (r *Resource[K, T]) idle() {
	r.token.Add(1)
	r.batch(func() {
		r.err.Set(nil)
		r.state.Set(next(r.state.Peek(), eventIdle, r.resolved))
	})
}

// load issues a new request for key.
func (r *Resource[K, T]) load(key K) {
	if r.ctx.Err() != nil {
		return
	}
	if err := r.rt.CheckFetch(); err != nil {
		r.token.Add(1)
		r.fail(&FetchError{Name: r.name, Cause: err})
		return
	}

	token := r.token.Add(1)
	start := time.Now()
	r.batch(func() {
		r.state.Set(next(r.state.Peek(), eventFetch, r.resolved))
	})
	if r.observer != nil {
		r.observer.FetchStarted(r.name)
	}

	if r.opts.inline {
		v, attempts, err := r.fetch(key, token)
		r.complete(token, start, attempts, v, err)
		return
	}
	go func() {
		v, attempts, err := r.fetch(key, token)
		r.rt.Dispatch(func() {
			r.complete(token, start, attempts, v, err)
		})
	}()
}

// fetch runs the fetcher with retries. It may run on any goroutine.
func (r *Resource[K, T]) fetch(key K, token uint64) (v T, attempts int, err error) {
	for attempts < 1+r.opts.retryCount {
		if attempts > 0 {
			select {
			case <-r.ctx.Done():
				return v, attempts, r.ctx.Err()
			case <-time.After(r.opts.retryDelay):
			}
		}
		if r.token.Load() != token {
			return v, attempts, errSuperseded
		}
		attempts++
		v, err = r.call(key)
		if err == nil {
			return v, attempts, nil
		}
	}
	return v, attempts, err
}

// call invokes the fetcher and turns a panic into an error.
func (r *Resource[K, T]) call(key K) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resource: fetcher panicked: %v", p)
		}
	}()
	return r.fetcher(r.ctx, key)
}

// complete commits a finished request if it is still the latest one.
func (r *Resource[K, T]) complete(token uint64, start time.Time, attempts int, v T, err error) {
	stats := FetchStats{
		Name:     r.name,
		Start:    start,
		Duration: time.Since(start),
		Attempts: attempts,
		Err:      err,
	}
	if token != r.token.Load() || r.ctx.Err() != nil {
		stats.Superseded = true
		r.rt.Logger().Debug("resource result dropped", "resource", r.name, "token", token)
		if r.observer != nil {
			r.observer.FetchCompleted(stats)
		}
		return
	}
	if r.observer != nil {
		r.observer.FetchCompleted(stats)
	}

	r.lastFetch = time.Now()
	if err != nil {
		r.rt.Logger().Warn("resource fetch failed", "resource", r.name, "attempts", attempts, "error", err)
		r.fail(&FetchError{Name: r.name, Attempts: attempts, Cause: err})
		return
	}

	r.batch(func() {
		r.resolved = true
		r.value.Set(v)
		r.err.Set(nil)
		r.state.Set(next(r.state.Peek(), eventResolve, true))
	})
	if r.onSuccess != nil {
		r.onSuccess(v)
	}
}

func (r *Resource[K, T]) fail(err error) {
	r.batch(func() {
		r.err.Set(err)
		r.state.Set(next(r.state.Peek(), eventReject, r.resolved))
	})
	if r.opts.onError != nil {
		r.opts.onError(err)
	}
}

// batch applies a state change as one flush. Graph errors raised by readers
// of the resource propagate to the caller.
func (r *Resource[K, T]) batch(fn func()) {
	if err := r.rt.Batch(fn); err != nil {
		panic(err)
	}
}
