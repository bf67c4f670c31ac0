package reactive

import (
	"sync"
	"time"
)

// StormBudgetConfig limits how fast asynchronous work may start.
// It protects the graph from amplification loops where a fetch result
// triggers the next fetch.
type StormBudgetConfig struct {
	// MaxFetchStarts is the number of resource fetches allowed per window.
	// Zero means no limit.
	MaxFetchStarts int

	// Window is the sliding window length. Defaults to one second.
	Window time.Duration
}

// BudgetStats reports current budget usage.
type BudgetStats struct {
	FetchStartsInWindow int
}

type stormBudget struct {
	fetches *slidingWindow
}

func newStormBudget(cfg *StormBudgetConfig) *stormBudget {
	if cfg == nil {
		return nil
	}
	window := cfg.Window
	if window == 0 {
		window = time.Second
	}
	return &stormBudget{fetches: newSlidingWindow(window, cfg.MaxFetchStarts)}
}

// CheckFetch reports whether a resource fetch may start now.
// It returns ErrBudgetExceeded when the window is full.
func (rt *Runtime) CheckFetch() error {
	if rt.budget == nil {
		return nil
	}
	if !rt.budget.fetches.tryAdd() {
		rt.logger.Warn("storm budget exceeded", "kind", "fetch")
		return ErrBudgetExceeded
	}
	return nil
}

// BudgetStats returns the current budget usage.
func (rt *Runtime) BudgetStats() BudgetStats {
	if rt.budget == nil {
		return BudgetStats{}
	}
	return BudgetStats{FetchStartsInWindow: rt.budget.fetches.count()}
}

// slidingWindow counts events inside a moving time window.
type slidingWindow struct {
	events     []time.Time
	windowSize time.Duration
	maxEvents  int
	now        func() time.Time
	mu         sync.Mutex
}

func newSlidingWindow(windowSize time.Duration, maxEvents int) *slidingWindow {
	return &slidingWindow{
		windowSize: windowSize,
		maxEvents:  maxEvents,
		now:        time.Now,
	}
}

// tryAdd records an event unless the window is full.
func (w *slidingWindow) tryAdd() bool {
	if w.maxEvents == 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if len(w.events) >= w.maxEvents {
		return false
	}
	w.events = append(w.events, now)
	return true
}

func (w *slidingWindow) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.events)
}

func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.windowSize)
	valid := 0
	for _, t := range w.events {
		if t.After(cutoff) {
			w.events[valid] = t
			valid++
		}
	}
	w.events = w.events[:valid]
}
