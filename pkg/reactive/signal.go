package reactive

// Signal is a mutable value that notifies the computations reading it.
//
// Signals are not owned: disposing an owner never disposes a signal created
// under it. Call Release to drop a signal that is no longer needed.
type Signal[T any] struct {
	rt     *Runtime
	id     nodeID
	gen    uint32
	value  T
	equals func(a, b T) bool
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](rt *Runtime, initial T) *Signal[T] {
	id := rt.alloc(kindSignal, "")
	return &Signal[T]{
		rt:     rt,
		id:     id,
		gen:    rt.nodes[id].gen,
		value:  initial,
		equals: defaultEquals[T],
	}
}

// WithEquals replaces the comparator used by Set. A write whose value equals
// the current one is dropped.
func (s *Signal[T]) WithEquals(fn func(a, b T) bool) *Signal[T] {
	s.equals = fn
	return s
}

// Named sets the name reported in errors and logs.
func (s *Signal[T]) Named(name string) *Signal[T] {
	if n, ok := s.rt.lookup(s.id, s.gen); ok {
		n.name = name
	}
	return s
}

// Get returns the value and subscribes the running computation to it.
func (s *Signal[T]) Get() T {
	if s.rt.listener != noNode {
		if _, ok := s.rt.lookup(s.id, s.gen); ok {
			s.rt.link(s.rt.listener, s.id)
		}
	}
	return s.value
}

// Peek returns the value without subscribing.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set stores v and propagates the change. Outside a batch the flush runs
// before Set returns; a computation failing during that flush panics out of
// Set with a *ComputationError.
func (s *Signal[T]) Set(v T) {
	if s.equals != nil && s.equals(s.value, v) {
		return
	}
	s.value = v
	if _, ok := s.rt.lookup(s.id, s.gen); ok {
		s.rt.notify(s.id)
	}
}

// Update sets the value to fn applied to the current value.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Release detaches every subscriber and frees the signal's node. The value
// stays readable; writes no longer notify anyone.
func (s *Signal[T]) Release() {
	if _, ok := s.rt.lookup(s.id, s.gen); ok {
		s.rt.disposeNode(s.id)
	}
}
