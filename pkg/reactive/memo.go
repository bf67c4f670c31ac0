package reactive

// Memo is a derived value cached between changes of the values it reads.
//
// A memo runs eagerly: once on creation, then whenever a source changes.
// When the recomputed value equals the previous one the memo's readers are
// not re-run.
type Memo[T any] struct {
	rt     *Runtime
	id     nodeID
	gen    uint32
	value  T
	equals func(a, b T) bool
}

// NewMemo creates a memo owned by the current owner and computes its first
// value immediately.
func NewMemo[T any](rt *Runtime, fn func() T) *Memo[T] {
	return newMemo(rt, "", fn)
}

// NewNamedMemo is NewMemo with a name reported in errors and logs.
func NewNamedMemo[T any](rt *Runtime, name string, fn func() T) *Memo[T] {
	return newMemo(rt, name, fn)
}

func newMemo[T any](rt *Runtime, name string, fn func() T) *Memo[T] {
	id := rt.alloc(kindMemo, name)
	n := rt.nodes[id]
	m := &Memo[T]{
		rt:     rt,
		id:     id,
		gen:    n.gen,
		equals: defaultEquals[T],
	}
	n.run = func(time uint64) {
		v := fn()
		first, ok := n.commit(time)
		if !ok {
			return
		}
		if first {
			m.value = v
			return
		}
		if m.equals != nil && m.equals(m.value, v) {
			return
		}
		m.value = v
		rt.notify(id)
	}
	rt.adopt(id)
	rt.updateComputation(id)
	return m
}

// WithEquals replaces the comparator deciding whether a recomputed value is a
// change. It applies from the next recomputation.
func (m *Memo[T]) WithEquals(fn func(a, b T) bool) *Memo[T] {
	m.equals = fn
	return m
}

// Get returns the current value and subscribes the running computation. A
// memo whose sources changed is brought up to date first.
func (m *Memo[T]) Get() T {
	if _, ok := m.rt.lookup(m.id, m.gen); !ok {
		return m.value
	}
	m.rt.refresh(m.id)
	if m.rt.listener != noNode {
		m.rt.link(m.rt.listener, m.id)
	}
	return m.value
}

// Peek returns the current value without subscribing.
func (m *Memo[T]) Peek() T {
	if _, ok := m.rt.lookup(m.id, m.gen); ok {
		m.rt.refresh(m.id)
	}
	return m.value
}

// Dispose stops the memo. Its last value stays readable.
func (m *Memo[T]) Dispose() {
	if _, ok := m.rt.lookup(m.id, m.gen); ok {
		m.rt.disown(m.id)
		m.rt.disposeNode(m.id)
	}
}

// Disposed reports whether the memo was disposed directly or by its owner.
func (m *Memo[T]) Disposed() bool {
	_, ok := m.rt.lookup(m.id, m.gen)
	return !ok
}
