// Package reactive provides the fine-grained reactive runtime behind the
// klinecore chart widget.
//
// Dependencies are tracked automatically at runtime: reading a Signal or a
// Memo inside a running computation subscribes that computation, and the
// subscription is rebuilt from scratch on every re-run. Writes propagate
// synchronously and glitch-free: pure computations (memos) settle first in
// dependency order, then effects run in the order they were scheduled.
//
// # Runtime
//
// All state lives on an explicit *Runtime. There are no package-level
// globals; every constructor takes the runtime it belongs to:
//
//	rt := reactive.NewRuntime()
//	price := reactive.NewSignal(rt, 101.5)
//	spread := reactive.NewMemo(rt, func() float64 { return price.Get() * 0.001 })
//
//	rt.Effect(func() reactive.Cleanup {
//	    fmt.Println("spread:", spread.Get())
//	    return nil
//	})
//
//	price.Set(102) // prints "spread: 0.102"
//
// # Ownership
//
// Every computation belongs to the owner that was active when it was
// created. Disposing an owner runs its cleanups in registration order, then
// disposes every computation and child owner it holds:
//
//	rt.CreateRoot(func(dispose func()) {
//	    rt.Effect(...)
//	    rt.OnCleanup(func() { ... })
//	    defer dispose()
//	})
//
// # Batching
//
// Writes inside Batch are collected and flushed once when the outermost
// batch returns:
//
//	err := rt.Batch(func() {
//	    bid.Set(101.2)
//	    ask.Set(101.4)
//	})
//
// # Threading
//
// A Runtime is single-threaded. Its graph must only be touched from the
// goroutine that owns it. Work finishing on other goroutines re-enters the
// graph through Dispatch, which is safe to call concurrently; the owning
// goroutine executes queued functions with Run, Wait or Drain.
package reactive
