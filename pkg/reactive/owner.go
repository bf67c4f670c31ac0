package reactive

// Owner is a node in the ownership tree. Computations and owners created
// while an owner is current belong to it and are disposed with it.
type Owner struct {
	rt  *Runtime
	id  nodeID
	gen uint32
}

// NewOwner creates an owner under parent. A nil parent creates a detached
// owner that is only disposed explicitly.
func (rt *Runtime) NewOwner(parent *Owner) *Owner {
	id := rt.alloc(kindOwner, "")
	n := rt.nodes[id]
	if parent != nil {
		if p, ok := rt.lookup(parent.id, parent.gen); ok {
			n.owner, n.ownerGen = parent.id, p.gen
			p.owned = append(p.owned, id)
		}
	}
	return &Owner{rt: rt, id: id, gen: n.gen}
}

// Owner returns the current owner, or nil outside any owner.
func (rt *Runtime) Owner() *Owner {
	if rt.owner == noNode {
		return nil
	}
	return &Owner{rt: rt, id: rt.owner, gen: rt.nodes[rt.owner].gen}
}

// Run executes fn with o as the current owner and no tracking. Updates fn
// causes are flushed before Run returns. It returns ErrDisposed if o was
// disposed and any error raised by the graph during the flush.
func (o *Owner) Run(fn func()) error {
	if _, ok := o.rt.lookup(o.id, o.gen); !ok {
		return ErrDisposed
	}
	return o.rt.guard(func() {
		o.rt.withOwner(o.id, fn)
	})
}

// RunWithOwner is Owner.Run that also accepts a nil owner.
func RunWithOwner(o *Owner, fn func()) error {
	if o == nil {
		return ErrNoOwner
	}
	return o.Run(fn)
}

func (rt *Runtime) withOwner(id nodeID, fn func()) {
	prevOwner, prevListener := rt.owner, rt.listener
	rt.owner, rt.listener = id, noNode
	defer func() {
		rt.owner, rt.listener = prevOwner, prevListener
	}()
	rt.runUpdates(fn)
}

// OnCleanup registers fn to run when o is disposed. Cleanups run in
// registration order. If o is already disposed fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	n, ok := o.rt.lookup(o.id, o.gen)
	if !ok {
		fn()
		return
	}
	n.cleanups = append(n.cleanups, fn)
}

// Dispose runs o's cleanups, then disposes everything it owns.
func (o *Owner) Dispose() {
	if _, ok := o.rt.lookup(o.id, o.gen); ok {
		o.rt.disown(o.id)
		o.rt.disposeNode(o.id)
	}
}

// Disposed reports whether o was disposed.
func (o *Owner) Disposed() bool {
	_, ok := o.rt.lookup(o.id, o.gen)
	return !ok
}

// OnCleanup registers fn with the current owner. For a computation the
// cleanup runs before its next run and on disposal. Outside any owner fn is
// never called and a warning is logged.
func (rt *Runtime) OnCleanup(fn func()) {
	if rt.owner == noNode {
		rt.logger.Warn("cleanup registered outside an owner")
		return
	}
	n := rt.nodes[rt.owner]
	n.cleanups = append(n.cleanups, fn)
}

// CreateRoot runs fn in a new root owner. The root is not disposed with the
// current owner; it lives until fn's dispose function is called. Context
// values of the current owner stay visible inside the root.
func (rt *Runtime) CreateRoot(fn func(dispose func())) {
	id := rt.alloc(kindOwner, "")
	n := rt.nodes[id]
	gen := n.gen
	if rt.owner != noNode {
		n.owner, n.ownerGen = rt.owner, rt.nodes[rt.owner].gen
	}
	dispose := func() {
		if _, ok := rt.lookup(id, gen); ok {
			rt.disposeNode(id)
		}
	}
	rt.withOwner(id, func() { fn(dispose) })
}

// Root is CreateRoot returning fn's result.
func Root[T any](rt *Runtime, fn func(dispose func()) T) T {
	var v T
	rt.CreateRoot(func(dispose func()) { v = fn(dispose) })
	return v
}
