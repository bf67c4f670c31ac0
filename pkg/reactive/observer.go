package reactive

import "time"

// FlushStats describes one outermost flush.
type FlushStats struct {
	// Start is when the flush opened.
	Start time.Time

	// Duration is the wall time the flush took, effects included.
	Duration time.Duration

	// Computations is the number of memo, computed and effect runs.
	Computations int

	// Err is set when the flush was aborted.
	Err error
}

// Observer receives flush statistics. Implementations run on the runtime
// goroutine and must not touch the graph.
type Observer interface {
	FlushCompleted(FlushStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(FlushStats)

// FlushCompleted calls f.
func (f ObserverFunc) FlushCompleted(s FlushStats) {
	f(s)
}
