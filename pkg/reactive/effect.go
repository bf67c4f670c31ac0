package reactive

// Cleanup is returned by an effect body and runs before the next run or on
// disposal.
type Cleanup func()

// Effect is a side effect that re-runs when anything it read changes.
type Effect struct {
	rt  *Runtime
	id  nodeID
	gen uint32
}

// EffectOption configures an effect.
type EffectOption interface {
	isEffectOption()
	applyEffect(c *effectConfig)
}

type effectConfig struct {
	name string
}

type effectOptionFunc func(*effectConfig)

func (f effectOptionFunc) isEffectOption()             {}
func (f effectOptionFunc) applyEffect(c *effectConfig) { f(c) }

// EffectName sets the name reported when the effect fails.
func EffectName(name string) EffectOption {
	return effectOptionFunc(func(c *effectConfig) {
		c.name = name
	})
}

// Effect creates an effect owned by the current owner and runs it once
// immediately. Later runs happen after all memos of a flush have settled, in
// the order the effects were scheduled.
func (rt *Runtime) Effect(fn func() Cleanup, opts ...EffectOption) *Effect {
	var cfg effectConfig
	for _, opt := range opts {
		opt.applyEffect(&cfg)
	}

	id := rt.alloc(kindEffect, cfg.name)
	n := rt.nodes[id]
	n.run = func(time uint64) {
		cleanup := fn()
		if cleanup != nil {
			n.cleanups = append(n.cleanups, cleanup)
		}
		n.commit(time)
	}
	rt.adopt(id)
	rt.updateComputation(id)
	return &Effect{rt: rt, id: id, gen: n.gen}
}

// Computed creates a pure computation without a value. It runs with the
// memos, before any effect of the same flush.
func (rt *Runtime) Computed(fn func()) {
	id := rt.alloc(kindComputed, "")
	n := rt.nodes[id]
	n.run = func(time uint64) {
		fn()
		n.commit(time)
	}
	rt.adopt(id)
	rt.updateComputation(id)
}

// OnMount runs fn once without tracking anything it reads. The returned
// cleanup runs when the current owner is disposed.
func (rt *Runtime) OnMount(fn func() Cleanup) *Effect {
	return rt.Effect(func() Cleanup {
		var c Cleanup
		rt.Untracked(func() { c = fn() })
		return c
	})
}

// OnChange tracks deps and calls fn with the previous and next value every
// time deps produces a new result. fn itself is untracked and is not called
// for the initial value.
func OnChange[T any](rt *Runtime, deps func() T, fn func(prev, next T)) *Effect {
	var (
		prev  T
		first = true
	)
	return rt.Effect(func() Cleanup {
		next := deps()
		if first {
			first = false
			prev = next
			return nil
		}
		p := prev
		prev = next
		rt.Untracked(func() { fn(p, next) })
		return nil
	})
}

// Dispose stops the effect and runs its cleanups.
func (e *Effect) Dispose() {
	if _, ok := e.rt.lookup(e.id, e.gen); ok {
		e.rt.disown(e.id)
		e.rt.disposeNode(e.id)
	}
}

// Disposed reports whether the effect was disposed directly or by its owner.
func (e *Effect) Disposed() bool {
	_, ok := e.rt.lookup(e.id, e.gen)
	return !ok
}
