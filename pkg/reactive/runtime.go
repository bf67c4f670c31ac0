package reactive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
)

// DefaultMaxUpdatesPerFlush is the number of computations a single flush may
// execute before it is aborted with a RunawayUpdateError.
const DefaultMaxUpdatesPerFlush = 10000

// Runtime owns a reactive graph and its scheduler.
//
// A Runtime is not safe for concurrent use. Only Dispatch, Pending and the
// queue-draining methods may be called from other goroutines.
type Runtime struct {
	nodes     []*node
	free      []nodeID
	graveyard []nodeID

	owner    nodeID
	listener nodeID

	updates    []nodeID
	effects    []nodeID
	collecting bool
	effecting  bool
	clock      uint64
	depth      int
	running    int
	executed   int
	limit      int

	logger   *slog.Logger
	observer Observer
	budget   *stormBudget

	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

// Options configures a Runtime.
type Options struct {
	// Logger receives computation failures, runaway flushes and dispatch
	// panics. Defaults to a logger that discards everything.
	Logger *slog.Logger

	// Observer is notified after every outermost flush.
	Observer Observer

	// MaxUpdatesPerFlush bounds the computations one flush may execute.
	// Zero uses DefaultMaxUpdatesPerFlush; a negative value disables the check.
	MaxUpdatesPerFlush int

	// StormBudget rate-limits resource fetch starts. Nil disables the limit.
	StormBudget *StormBudgetConfig
}

// Option configures Options.
type Option func(*Options)

// WithLogger sets the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithObserver sets the flush observer.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		o.Observer = obs
	}
}

// WithMaxUpdates sets the per-flush computation limit.
func WithMaxUpdates(n int) Option {
	return func(o *Options) {
		o.MaxUpdatesPerFlush = n
	}
}

// WithStormBudget enables fetch rate limiting.
func WithStormBudget(cfg *StormBudgetConfig) Option {
	return func(o *Options) {
		o.StormBudget = cfg
	}
}

// NewRuntime creates an empty reactive graph.
func NewRuntime(opts ...Option) *Runtime {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	limit := o.MaxUpdatesPerFlush
	switch {
	case limit == 0:
		limit = DefaultMaxUpdatesPerFlush
	case limit < 0:
		limit = 0
	}

	return &Runtime{
		nodes:    []*node{{}},
		clock:    1,
		limit:    limit,
		logger:   logger,
		observer: o.Observer,
		budget:   newStormBudget(o.StormBudget),
		wake:     make(chan struct{}, 1),
	}
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Observer returns the configured observer, or nil.
func (rt *Runtime) Observer() Observer {
	return rt.observer
}

// Size returns the number of live nodes in the graph.
func (rt *Runtime) Size() int {
	return len(rt.nodes) - 1 - len(rt.free) - len(rt.graveyard)
}

// Batch runs fn and flushes the resulting updates once when the outermost
// batch returns. Nested batches are absorbed by the outer one.
//
// Errors raised by the graph (*ComputationError, *RunawayUpdateError) are
// returned. Any other panic from fn propagates unchanged after the pending
// queues are dropped.
func (rt *Runtime) Batch(fn func()) error {
	return rt.guard(func() {
		rt.runUpdates(fn)
	})
}

// Untracked runs fn without subscribing the current computation to anything
// fn reads.
func (rt *Runtime) Untracked(fn func()) {
	prev := rt.listener
	rt.listener = noNode
	defer func() { rt.listener = prev }()
	fn()
}

// Untrack returns fn's result without tracking the reads inside fn.
func Untrack[T any](rt *Runtime, fn func() T) T {
	var v T
	rt.Untracked(func() { v = fn() })
	return v
}

// guard converts graph panics raised by fn into errors.
func (rt *Runtime) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if !isGraphPanic(r) {
				panic(r)
			}
			err = r.(error)
		}
	}()
	fn()
	return nil
}

// Dispatch queues fn to run on the goroutine that owns the runtime.
// It is safe to call from any goroutine and never blocks.
func (rt *Runtime) Dispatch(fn func()) {
	rt.mu.Lock()
	rt.tasks = append(rt.tasks, fn)
	rt.mu.Unlock()

	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of dispatched functions waiting to run.
func (rt *Runtime) Pending() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.tasks)
}

// Drain runs every queued function, including functions queued while
// draining. Panics are recovered and returned joined.
func (rt *Runtime) Drain() error {
	var errs []error
	for {
		rt.mu.Lock()
		tasks := rt.tasks
		rt.tasks = nil
		rt.mu.Unlock()

		if len(tasks) == 0 {
			return errors.Join(errs...)
		}
		for _, fn := range tasks {
			if err := rt.executeDispatch(fn); err != nil {
				errs = append(errs, err)
			}
		}
	}
}

// Wait blocks until at least one function is queued, then drains the queue.
func (rt *Runtime) Wait(ctx context.Context) error {
	for rt.Pending() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rt.wake:
		}
	}
	return rt.Drain()
}

// Run executes dispatched functions until ctx is cancelled. Failures are
// logged and the loop keeps going.
func (rt *Runtime) Run(ctx context.Context) error {
	for {
		if err := rt.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rt.logger.Error("dispatch failed", "error", err)
		}
	}
}

func (rt *Runtime) executeDispatch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if isGraphPanic(r) {
				err = r.(error)
				return
			}
			stack := debug.Stack()
			rt.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(stack))
			err = kerrors.New("E105").Wrap(normalizePanic(r))
		}
	}()
	rt.runUpdates(fn)
	return nil
}
