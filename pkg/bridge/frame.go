package bridge

import (
	"github.com/vango-dev/klinecore/pkg/reconcile"
)

// Frame types.
const (
	FrameHello    = "hello"
	FrameSnapshot = "snapshot"
	FrameOps      = "ops"
	FrameResync   = "resync"
)

// Frame is the JSON message exchanged with renderers.
type Frame struct {
	Type string `json:"type"`

	// Seq is the sequence number of the last ops frame reflected by the
	// frame. Renderers can detect gaps with it.
	Seq uint64 `json:"seq"`

	// Client is the renderer id, set on hello frames.
	Client string `json:"client,omitempty"`

	// List and Ops are set on ops frames.
	List string    `json:"list,omitempty"`
	Ops  []OpFrame `json:"ops,omitempty"`

	// Lists is set on snapshot frames.
	Lists map[string]ListState `json:"lists,omitempty"`
}

// OpFrame is a reconcile op with its mapped value.
type OpFrame struct {
	Op       reconcile.OpKind `json:"op"`
	Key      any              `json:"key"`
	Index    int              `json:"index"`
	From     int              `json:"from"`
	Fallback bool             `json:"fallback,omitempty"`
	Value    any              `json:"value,omitempty"`
}

// Entry is one rendered item.
type Entry struct {
	Key   any `json:"key"`
	Value any `json:"value"`
}

// ListState is the rendered state of a list.
type ListState struct {
	Entries  []Entry `json:"entries"`
	Fallback any     `json:"fallback,omitempty"`
}

// apply replays op on the list state.
func (s *ListState) apply(op OpFrame) {
	if op.Fallback {
		if op.Op == reconcile.OpCreate {
			s.Fallback = op.Value
		} else if op.Op == reconcile.OpRemove {
			s.Fallback = nil
		}
		return
	}
	switch op.Op {
	case reconcile.OpRemove:
		s.Entries = append(s.Entries[:op.From], s.Entries[op.From+1:]...)
	case reconcile.OpCreate:
		s.insert(op.Index, Entry{Key: op.Key, Value: op.Value})
	case reconcile.OpMove:
		e := s.Entries[op.From]
		e.Value = op.Value
		s.Entries = append(s.Entries[:op.From], s.Entries[op.From+1:]...)
		s.insert(op.Index, e)
	case reconcile.OpUpdate:
		s.Entries[op.Index].Value = op.Value
	}
}

func (s *ListState) insert(i int, e Entry) {
	s.Entries = append(s.Entries, Entry{})
	copy(s.Entries[i+1:], s.Entries[i:])
	s.Entries[i] = e
}

func (s ListState) clone() ListState {
	return ListState{
		Entries:  append([]Entry{}, s.Entries...),
		Fallback: s.Fallback,
	}
}
