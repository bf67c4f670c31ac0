package reconcile

import "fmt"

// OpKind is the type of a reconcile operation.
type OpKind uint8

const (
	OpCreate OpKind = 0x01 // Insert a new item
	OpRemove OpKind = 0x02 // Remove an item
	OpMove   OpKind = 0x03 // Move a kept item
	OpUpdate OpKind = 0x04 // A kept item's value changed
)

// String returns the string representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "Create"
	case OpRemove:
		return "Remove"
	case OpMove:
		return "Move"
	case OpUpdate:
		return "Update"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OpKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OpKind) UnmarshalText(b []byte) error {
	for _, kind := range []OpKind{OpCreate, OpRemove, OpMove, OpUpdate} {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("reconcile: unknown op kind %q", b)
}

// Op is a single edit turning the previous sequence into the next one.
//
// Ops are positional and meant to be applied in order to a working copy of
// the previous sequence:
//
//	Remove: delete the element at From
//	Create: insert a new element at Index
//	Move:   delete the element at From, then insert it at Index
//	Update: the element now at Index has a new value
//
// Removes come first, in descending position order, then creates and moves,
// then updates. Apply performs exactly these steps.
type Op[K comparable] struct {
	Kind  OpKind `json:"op"`
	Key   K      `json:"key"`
	Index int    `json:"index"`
	From  int    `json:"from"`

	// Fallback marks the placeholder shown while the list is empty.
	Fallback bool `json:"fallback,omitempty"`
}

// String returns a compact human-readable form of the op.
func (o Op[K]) String() string {
	name := fmt.Sprint(o.Key)
	if o.Fallback {
		name = "<fallback>"
	}
	switch o.Kind {
	case OpCreate:
		return fmt.Sprintf("create %s at %d", name, o.Index)
	case OpRemove:
		return fmt.Sprintf("remove %s at %d", name, o.From)
	case OpMove:
		return fmt.Sprintf("move %s %d->%d", name, o.From, o.Index)
	case OpUpdate:
		return fmt.Sprintf("update %s at %d", name, o.Index)
	default:
		return fmt.Sprintf("%s %s", o.Kind, name)
	}
}

// Apply replays ops on a copy of prev and returns the result. Fallback and
// update ops do not change the sequence.
func Apply[K comparable](prev []K, ops []Op[K]) []K {
	out := append([]K(nil), prev...)
	for _, op := range ops {
		if op.Fallback {
			continue
		}
		switch op.Kind {
		case OpRemove:
			out = removeAt(out, op.From)
		case OpCreate:
			out = insertAt(out, op.Index, op.Key)
		case OpMove:
			k := out[op.From]
			out = insertAt(removeAt(out, op.From), op.Index, k)
		}
	}
	return out
}

// Count tallies ops by kind.
func Count[K comparable](ops []Op[K]) map[OpKind]int {
	counts := make(map[OpKind]int, 4)
	for _, op := range ops {
		counts[op.Kind]++
	}
	return counts
}

func removeAt[E any](s []E, i int) []E {
	return append(s[:i], s[i+1:]...)
}

func insertAt[E any](s []E, i int, v E) []E {
	var zero E
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
