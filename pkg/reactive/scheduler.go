package reactive

import (
	"runtime/debug"
	"time"
)

// runUpdates runs fn inside a flush. When a flush is already collecting, fn
// simply runs and its writes join the active queues. Otherwise a new flush
// opens, fn runs, pure computations settle and queued effects execute.
func (rt *Runtime) runUpdates(fn func()) {
	if rt.collecting {
		fn()
		return
	}

	outermost := rt.depth == 0
	var start time.Time
	if outermost {
		rt.executed = 0
		start = time.Now()
	}

	rt.depth++
	rt.collecting = true
	rt.updates = nil
	wait := rt.effecting
	if !wait {
		rt.effecting = true
		rt.effects = nil
	}
	rt.clock++

	defer func() {
		r := recover()
		if r != nil {
			rt.abort(wait)
		}
		rt.depth--
		if outermost {
			rt.flushDone(start, r)
		}
		rt.collect()
		if r != nil {
			panic(r)
		}
	}()

	fn()
	rt.completeUpdates(wait)
}

// completeUpdates drains the pure queue, then the effect queue unless an
// outer flush owns it.
func (rt *Runtime) completeUpdates(wait bool) {
	if rt.collecting {
		for i := 0; i < len(rt.updates); i++ {
			rt.runTop(rt.updates[i])
		}
		rt.updates = nil
		rt.collecting = false
	}
	if wait {
		return
	}

	queue := rt.effects
	rt.effects = nil
	rt.effecting = false

	i := 0
	defer func() {
		if r := recover(); r != nil {
			for _, id := range queue[i+1:] {
				rt.nodes[id].failed = true
			}
			panic(r)
		}
	}()
	for ; i < len(queue); i++ {
		id := queue[i]
		rt.runUpdates(func() { rt.runTop(id) })
	}
}

// abort drops the queues of a failed flush. Every dropped node is marked
// failed so its next trigger schedules it again.
func (rt *Runtime) abort(wait bool) {
	for _, id := range rt.updates {
		rt.nodes[id].failed = true
	}
	rt.updates = nil
	rt.collecting = false
	if !wait {
		for _, id := range rt.effects {
			rt.nodes[id].failed = true
		}
		rt.effects = nil
		rt.effecting = false
	}
}

func (rt *Runtime) flushDone(start time.Time, r any) {
	stats := FlushStats{
		Start:        start,
		Duration:     time.Since(start),
		Computations: rt.executed,
	}
	if r != nil {
		stats.Err = normalizePanic(r)
	}
	if rt.observer != nil {
		rt.observer.FlushCompleted(stats)
	}
	if re, ok := r.(*RunawayUpdateError); ok {
		rt.logger.Error("runaway update", "limit", re.Limit, "last", re.Last)
	}
}

// enqueue appends id to the pure or effect queue.
func (rt *Runtime) enqueue(id nodeID) {
	if rt.nodes[id].pure() {
		rt.updates = append(rt.updates, id)
	} else {
		rt.effects = append(rt.effects, id)
	}
}

// notify marks the observers of a changed signal or memo stale and their
// transitive observers pending.
func (rt *Runtime) notify(id nodeID) {
	if len(rt.nodes[id].observers) == 0 {
		return
	}
	rt.runUpdates(func() {
		n := rt.nodes[id]
		for i := 0; i < len(n.observers); i++ {
			obsID := n.observers[i]
			o := rt.nodes[obsID]
			if o.state == stateClean || o.failed {
				o.failed = false
				rt.enqueue(obsID)
				if len(o.observers) > 0 {
					rt.markDownstream(obsID)
				}
			}
			o.state = stateStale
		}
	})
}

// markDownstream marks every clean transitive observer of id pending.
func (rt *Runtime) markDownstream(id nodeID) {
	n := rt.nodes[id]
	for i := 0; i < len(n.observers); i++ {
		obsID := n.observers[i]
		o := rt.nodes[obsID]
		if o.state == stateClean || o.failed {
			o.failed = false
			o.state = statePending
			rt.enqueue(obsID)
			if len(o.observers) > 0 {
				rt.markDownstream(obsID)
			}
		}
	}
}

// runTop brings id up to date. Stale owners above it run first so a child
// about to be replaced by its parent's re-run is never executed.
func (rt *Runtime) runTop(id nodeID) {
	n := rt.nodes[id]
	if n.disposed || n.state == stateClean {
		return
	}
	if n.state == statePending {
		rt.lookUpstream(id, noNode)
		return
	}

	ancestors := []nodeID{id}
	for o := rt.parent(n); o != noNode; o = rt.parent(rt.nodes[o]) {
		on := rt.nodes[o]
		if on.updatedAt >= rt.clock {
			break
		}
		if on.run != nil && on.state != stateClean {
			ancestors = append(ancestors, o)
		}
	}

	for i := len(ancestors) - 1; i >= 0; i-- {
		a := rt.nodes[ancestors[i]]
		if a.disposed {
			continue
		}
		switch a.state {
		case stateStale:
			rt.updateComputation(ancestors[i])
		case statePending:
			rt.resolvePending(ancestors[i], ancestors[0])
		}
	}
}

// resolvePending settles a pending node inside a private pure queue.
func (rt *Runtime) resolvePending(id, ignore nodeID) {
	saved, savedCollecting := rt.updates, rt.collecting
	rt.updates, rt.collecting = nil, false
	defer func() {
		rt.updates, rt.collecting = saved, savedCollecting
	}()
	rt.runUpdates(func() { rt.lookUpstream(id, ignore) })
}

// lookUpstream resolves the sources of a pending node top-down. The node is
// marked clean first; if any source actually changes, notify marks it stale
// and queues it again.
func (rt *Runtime) lookUpstream(id, ignore nodeID) {
	n := rt.nodes[id]
	n.state = stateClean
	for i := 0; i < len(n.sources); i++ {
		srcID := n.sources[i]
		src := rt.nodes[srcID]
		if src.run == nil {
			continue
		}
		switch src.state {
		case stateStale:
			if srcID != ignore {
				rt.runTop(srcID)
			}
		case statePending:
			rt.lookUpstream(srcID, ignore)
		}
	}
}

// refresh brings a computation read outside the scheduler up to date.
func (rt *Runtime) refresh(id nodeID) {
	n := rt.nodes[id]
	switch n.state {
	case stateStale:
		rt.updateComputation(id)
	case statePending:
		rt.resolvePending(id, noNode)
	}
}

// updateComputation re-runs a computation from a clean scope.
func (rt *Runtime) updateComputation(id nodeID) {
	n := rt.nodes[id]
	if n.run == nil || n.disposed {
		return
	}
	if rt.depth > 0 {
		rt.executed++
		if rt.limit > 0 && rt.executed > rt.limit {
			n.state = stateStale
			n.failed = true
			panic(&RunawayUpdateError{Limit: rt.limit, Last: n.label()})
		}
	}

	rt.cleanNode(id)
	time := rt.clock

	prevOwner, prevListener := rt.owner, rt.listener
	rt.owner, rt.listener = id, id
	rt.running++
	defer func() {
		rt.running--
		rt.owner, rt.listener = prevOwner, prevListener
	}()

	rt.runComputation(id, time)
}

// runComputation executes the body and converts panics into
// ComputationErrors. A failed node is left stale and flagged failed.
func (rt *Runtime) runComputation(id nodeID, time uint64) {
	n := rt.nodes[id]
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		n.state = stateStale
		n.failed = true
		owned := n.owned
		n.owned = nil
		for _, child := range owned {
			rt.disposeNode(child)
		}
		if isGraphPanic(r) {
			panic(r)
		}
		err := &ComputationError{
			Name:  n.label(),
			Kind:  n.kind.String(),
			Cause: normalizePanic(r),
			Stack: debug.Stack(),
		}
		rt.logger.Warn("computation failed", "kind", err.Kind, "name", err.Name, "error", err.Cause)
		panic(err)
	}()
	n.run(time)
}

// commit reports whether a finished run at time may store its value.
// A run started before a newer completed run is discarded.
func (n *node) commit(time uint64) (first, ok bool) {
	if n.updatedAt != 0 && n.updatedAt > time {
		return false, false
	}
	first = n.updatedAt == 0
	n.updatedAt = time
	return first, true
}
