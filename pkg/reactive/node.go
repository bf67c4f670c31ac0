package reactive

// nodeID addresses a node in the runtime arena. Zero is never allocated.
type nodeID uint32

const noNode nodeID = 0

type nodeKind uint8

const (
	kindSignal nodeKind = iota + 1
	kindMemo
	kindComputed
	kindEffect
	kindOwner
)

// String returns a human-readable name for the node kind.
func (k nodeKind) String() string {
	switch k {
	case kindSignal:
		return "signal"
	case kindMemo:
		return "memo"
	case kindComputed:
		return "computed"
	case kindEffect:
		return "effect"
	case kindOwner:
		return "owner"
	default:
		return "unknown"
	}
}

type nodeState uint8

const (
	stateClean nodeState = iota
	stateStale
	statePending
)

// node is the type-erased part of every signal, computation and owner.
//
// Edges are stored on both ends together with the index of the mirrored
// entry: sources[i] holds n at sources[i].observers[sourceSlots[i]], and
// observers[j] holds n at observers[j].sources[observerSlots[j]]. Removing an
// edge is a swap-remove on each side plus one slot fix-up per side.
type node struct {
	kind  nodeKind
	state nodeState
	gen   uint32
	name  string

	observers     []nodeID
	observerSlots []int
	sources       []nodeID
	sourceSlots   []int

	owner    nodeID
	ownerGen uint32
	owned    []nodeID
	cleanups []func()
	values   map[any]any

	// run executes the body for computations; nil for signals and owners.
	run       func(time uint64)
	updatedAt uint64

	// failed marks a node whose last run was aborted. A failed node is
	// re-queued by its next trigger even though it is not clean.
	failed   bool
	disposed bool
}

func (n *node) pure() bool {
	return n.kind == kindMemo || n.kind == kindComputed
}

func (n *node) label() string {
	if n.name != "" {
		return n.name
	}
	return n.kind.String()
}

// alloc takes a node from the free list or grows the arena.
func (rt *Runtime) alloc(kind nodeKind, name string) nodeID {
	if last := len(rt.free) - 1; last >= 0 {
		id := rt.free[last]
		rt.free = rt.free[:last]
		n := rt.nodes[id]
		*n = node{kind: kind, gen: n.gen + 1, name: name}
		return id
	}
	rt.nodes = append(rt.nodes, &node{kind: kind, gen: 1, name: name})
	return nodeID(len(rt.nodes) - 1)
}

// lookup returns the node for a handle if the handle is still current.
func (rt *Runtime) lookup(id nodeID, gen uint32) (*node, bool) {
	if id == noNode || int(id) >= len(rt.nodes) {
		return nil, false
	}
	n := rt.nodes[id]
	if n.gen != gen || n.disposed {
		return nil, false
	}
	return n, true
}

// link records that obs read src during its current run.
// Consecutive reads of the same source are collapsed; other duplicates are
// harmless because scheduling is driven by node state.
func (rt *Runtime) link(obs, src nodeID) {
	o := rt.nodes[obs]
	if o.disposed {
		return
	}
	if k := len(o.sources); k > 0 && o.sources[k-1] == src {
		return
	}
	s := rt.nodes[src]
	o.sources = append(o.sources, src)
	o.sourceSlots = append(o.sourceSlots, len(s.observers))
	s.observers = append(s.observers, obs)
	s.observerSlots = append(s.observerSlots, len(o.sources)-1)
}

// unlinkSourceAt removes edge i of obs.sources from both endpoints.
func (rt *Runtime) unlinkSourceAt(obs nodeID, i int) {
	o := rt.nodes[obs]
	src := o.sources[i]
	slot := o.sourceSlots[i]
	s := rt.nodes[src]

	// Source side: move the last observer into slot.
	last := len(s.observers) - 1
	if slot != last {
		movedObs := s.observers[last]
		movedSlot := s.observerSlots[last]
		s.observers[slot] = movedObs
		s.observerSlots[slot] = movedSlot
		rt.nodes[movedObs].sourceSlots[movedSlot] = slot
	}
	s.observers = s.observers[:last]
	s.observerSlots = s.observerSlots[:last]

	// Observer side: move the last source into i.
	last = len(o.sources) - 1
	if i != last {
		movedSrc := o.sources[last]
		movedSlot := o.sourceSlots[last]
		o.sources[i] = movedSrc
		o.sourceSlots[i] = movedSlot
		rt.nodes[movedSrc].observerSlots[movedSlot] = i
	}
	o.sources = o.sources[:last]
	o.sourceSlots = o.sourceSlots[:last]
}

// detachSources drops every edge from id to the nodes it read.
func (rt *Runtime) detachSources(id nodeID) {
	n := rt.nodes[id]
	for len(n.sources) > 0 {
		rt.unlinkSourceAt(id, len(n.sources)-1)
	}
}

// detachObservers drops every edge from nodes that read id.
func (rt *Runtime) detachObservers(id nodeID) {
	n := rt.nodes[id]
	for last := len(n.observers) - 1; last >= 0; last = len(n.observers) - 1 {
		rt.unlinkSourceAt(n.observers[last], n.observerSlots[last])
	}
}

// adopt registers id under the current owner.
func (rt *Runtime) adopt(id nodeID) {
	if rt.owner == noNode {
		return
	}
	owner := rt.nodes[rt.owner]
	n := rt.nodes[id]
	n.owner, n.ownerGen = rt.owner, owner.gen
	owner.owned = append(owner.owned, id)
}

// parent returns the live owner of n, or noNode once that owner is gone.
// Roots keep a parent link for context lookup without being owned by it, so
// the parent may be disposed first.
func (rt *Runtime) parent(n *node) nodeID {
	if n.owner == noNode {
		return noNode
	}
	p := rt.nodes[n.owner]
	if p.gen != n.ownerGen || p.disposed {
		return noNode
	}
	return n.owner
}

// disown removes id from its owner's owned list.
func (rt *Runtime) disown(id nodeID) {
	n := rt.nodes[id]
	p := rt.parent(n)
	if p == noNode {
		return
	}
	owner := rt.nodes[p]
	for i, child := range owner.owned {
		if child == id {
			owner.owned = append(owner.owned[:i], owner.owned[i+1:]...)
			return
		}
	}
}

// cleanNode resets a node before a re-run or disposal: it detaches the
// node from its sources, runs its cleanups in registration order, then
// disposes everything it owns.
func (rt *Runtime) cleanNode(id nodeID) {
	n := rt.nodes[id]
	rt.detachSources(id)

	cleanups := n.cleanups
	n.cleanups = nil
	for _, fn := range cleanups {
		fn()
	}

	owned := n.owned
	n.owned = nil
	for _, child := range owned {
		rt.disposeNode(child)
	}

	n.state = stateClean
	n.values = nil
}

// disposeNode tears a node down for good. The arena slot is recycled once
// the runtime is idle so queued ids never point at a reused slot.
func (rt *Runtime) disposeNode(id nodeID) {
	n := rt.nodes[id]
	if n.disposed {
		return
	}
	n.disposed = true
	rt.running++
	defer func() {
		rt.running--
		rt.collect()
	}()
	rt.cleanNode(id)
	rt.detachObservers(id)
	n.run = nil
	rt.graveyard = append(rt.graveyard, id)
}

// collect recycles disposed slots when no flush, computation or disposal is
// running.
func (rt *Runtime) collect() {
	if rt.depth > 0 || rt.running > 0 {
		return
	}
	for _, id := range rt.graveyard {
		n := rt.nodes[id]
		*n = node{gen: n.gen, disposed: true}
		rt.free = append(rt.free, id)
	}
	rt.graveyard = rt.graveyard[:0]
}
