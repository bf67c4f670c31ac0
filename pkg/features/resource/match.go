package resource

// Handler handles one or more resource states.
type Handler[T, R any] interface {
	handle(s State, v T, err error) (R, bool)
}

type handlerFunc[T, R any] func(s State, v T, err error) (R, bool)

func (f handlerFunc[T, R]) handle(s State, v T, err error) (R, bool) {
	return f(s, v, err)
}

// Match returns the result of the first handler accepting the current state,
// or the zero R when none does. Reading subscribes the running computation.
func Match[K comparable, T, R any](r *Resource[K, T], handlers ...Handler[T, R]) R {
	s := r.state.Get()
	v := r.value.Get()
	var err error
	if s == Errored {
		err = r.err.Get()
	}
	for _, h := range handlers {
		if out, ok := h.handle(s, v, err); ok {
			return out
		}
	}
	var zero R
	return zero
}

// OnUnresolved handles a resource that has nothing to fetch yet.
func OnUnresolved[T, R any](fn func() R) Handler[T, R] {
	return handlerFunc[T, R](func(s State, _ T, _ error) (R, bool) {
		if s != Unresolved {
			var zero R
			return zero, false
		}
		return fn(), true
	})
}

// OnPending handles the first request in flight.
func OnPending[T, R any](fn func() R) Handler[T, R] {
	return handlerFunc[T, R](func(s State, _ T, _ error) (R, bool) {
		if s != Pending {
			var zero R
			return zero, false
		}
		return fn(), true
	})
}

// OnLoading handles Pending and Refreshing.
func OnLoading[T, R any](fn func() R) Handler[T, R] {
	return handlerFunc[T, R](func(s State, _ T, _ error) (R, bool) {
		if !s.Loading() {
			var zero R
			return zero, false
		}
		return fn(), true
	})
}

// OnRefreshing handles a request in flight over an earlier value.
func OnRefreshing[T, R any](fn func(T) R) Handler[T, R] {
	return handlerFunc[T, R](func(s State, v T, _ error) (R, bool) {
		if s != Refreshing {
			var zero R
			return zero, false
		}
		return fn(v), true
	})
}

// OnError handles Errored.
func OnError[T, R any](fn func(error) R) Handler[T, R] {
	return handlerFunc[T, R](func(s State, _ T, err error) (R, bool) {
		if s != Errored {
			var zero R
			return zero, false
		}
		return fn(err), true
	})
}

// OnReady handles Ready.
func OnReady[T, R any](fn func(T) R) Handler[T, R] {
	return handlerFunc[T, R](func(s State, v T, _ error) (R, bool) {
		if s != Ready {
			var zero R
			return zero, false
		}
		return fn(v), true
	})
}
