package telemetry

import (
	"github.com/vango-dev/klinecore/pkg/features/resource"
	"github.com/vango-dev/klinecore/pkg/reactive"
	"github.com/vango-dev/klinecore/pkg/reconcile"
)

// Observer receives both runtime and resource events.
type Observer interface {
	reactive.Observer
	resource.Observer
}

var (
	_ Observer = (*Metrics)(nil)
	_ Observer = (*Tracer)(nil)
	_ Observer = Multi(nil)
)

// Multi fans events out to several observers in order. Resource events
// reach the members that also implement resource.Observer.
type Multi []reactive.Observer

// FlushCompleted implements reactive.Observer.
func (m Multi) FlushCompleted(s reactive.FlushStats) {
	for _, o := range m {
		o.FlushCompleted(s)
	}
}

// FetchStarted implements resource.Observer.
func (m Multi) FetchStarted(name string) {
	for _, o := range m {
		if ro, ok := o.(resource.Observer); ok {
			ro.FetchStarted(name)
		}
	}
}

// FetchCompleted implements resource.Observer.
func (m Multi) FetchCompleted(s resource.FetchStats) {
	for _, o := range m {
		if ro, ok := o.(resource.Observer); ok {
			ro.FetchCompleted(s)
		}
	}
}

// CountOps wraps next so every op is counted under the list name before
// being forwarded. next may be nil.
func CountOps[K comparable, U any](m *Metrics, list string, next reconcile.Sink[K, U]) reconcile.Sink[K, U] {
	return reconcile.SinkFunc[K, U](func(op reconcile.Op[K], out U) {
		m.RecordOps(list, op.Kind, 1)
		if next != nil {
			next.Apply(op, out)
		}
	})
}
