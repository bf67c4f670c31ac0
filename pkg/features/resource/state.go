package resource

// State is the lifecycle state of a resource.
type State int

const (
	// Unresolved means no request was made and no value is available.
	Unresolved State = iota

	// Pending means the first request is in flight.
	Pending

	// Ready means the last request resolved.
	Ready

	// Refreshing means a request is in flight and an earlier value is kept.
	Refreshing

	// Errored means the last request failed.
	Errored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Refreshing:
		return "refreshing"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Loading reports whether a request is in flight.
func (s State) Loading() bool {
	return s == Pending || s == Refreshing
}

type event int

const (
	eventFetch event = iota
	eventResolve
	eventReject
	eventIdle
)

// next is the transition function. resolved reports whether any request
// or mutation has produced a value so far.
func next(s State, e event, resolved bool) State {
	switch e {
	case eventFetch:
		if resolved {
			return Refreshing
		}
		return Pending
	case eventResolve:
		return Ready
	case eventReject:
		return Errored
	case eventIdle:
		if resolved {
			return Ready
		}
		return Unresolved
	}
	return s
}
