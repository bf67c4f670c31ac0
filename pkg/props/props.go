package props

import (
	"reflect"
	"sort"

	"github.com/vango-dev/klinecore/pkg/reactive"
)

// Key names a prop and carries its type and default.
type Key[V any] struct {
	name string
	def  V
}

// NewKey creates a key for the prop name with a default value.
func NewKey[V any](name string, def V) Key[V] {
	return Key[V]{name: name, def: def}
}

// Name returns the prop name.
func (k Key[V]) Name() string {
	return k.name
}

// Default returns the value used when no layer sets the prop.
func (k Key[V]) Default() V {
	return k.def
}

// Layer is one source of prop values.
type Layer interface {
	Lookup(name string) (any, bool)
	Names() []string
}

// Values is a static layer.
type Values map[string]any

// Lookup implements Layer.
func (v Values) Lookup(name string) (any, bool) {
	x, ok := v[name]
	return x, ok
}

// Names implements Layer. Names are sorted.
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Func is a layer computed on every lookup.
type Func func() Values

// Lookup implements Layer.
func (f Func) Lookup(name string) (any, bool) {
	return f().Lookup(name)
}

// Names implements Layer.
func (f Func) Names() []string {
	return f().Names()
}

// Set returns a layer holding a single typed value.
func Set[V any](k Key[V], v V) Layer {
	return Values{k.name: v}
}

// Props is an ordered stack of layers. The zero value has no props.
type Props struct {
	layers []Layer
}

// Merge stacks layers in increasing precedence. Props passed as a layer are
// flattened; nil layers are skipped.
func Merge(layers ...Layer) Props {
	var p Props
	for _, l := range layers {
		switch l := l.(type) {
		case nil:
		case Props:
			p.layers = append(p.layers, l.layers...)
		case *Props:
			if l != nil {
				p.layers = append(p.layers, l.layers...)
			}
		default:
			p.layers = append(p.layers, l)
		}
	}
	return p
}

// Lookup returns the value of the topmost layer that sets name to a non-nil
// value.
func (p Props) Lookup(name string) (any, bool) {
	for i := len(p.layers) - 1; i >= 0; i-- {
		if v, ok := p.layers[i].Lookup(name); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Names returns every prop name set by any layer, in order of first
// appearance from the bottom layer up.
func (p Props) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, l := range p.layers {
		for _, name := range l.Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Len returns the number of layers.
func (p Props) Len() int {
	return len(p.layers)
}

// Resolve flattens l into a single set of values.
func Resolve(l Layer) Values {
	out := make(Values)
	for _, name := range l.Names() {
		if v, ok := l.Lookup(name); ok && v != nil {
			out[name] = v
		}
	}
	return out
}

// Lookup returns the typed value of k. It reports false when no layer sets k
// or the value has another type.
func Lookup[V any](l Layer, k Key[V]) (V, bool) {
	v, ok := l.Lookup(k.name)
	if !ok {
		return k.def, false
	}
	typed, ok := v.(V)
	if !ok {
		return k.def, false
	}
	return typed, true
}

// Get returns the typed value of k, or its default.
func Get[V any](l Layer, k Key[V]) V {
	v, _ := Lookup(l, k)
	return v
}

type filter struct {
	base    Layer
	names   map[string]bool
	include bool
}

func (f filter) Lookup(name string) (any, bool) {
	if f.names[name] != f.include {
		return nil, false
	}
	return f.base.Lookup(name)
}

func (f filter) Names() []string {
	var out []string
	for _, name := range f.base.Names() {
		if f.names[name] == f.include {
			out = append(out, name)
		}
	}
	return out
}

// Split divides l into the named props and the rest. Both halves read
// through to l, so computed layers stay live.
func Split(l Layer, names ...string) (picked, rest Props) {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	picked = Props{layers: []Layer{filter{base: l, names: set, include: true}}}
	rest = Props{layers: []Layer{filter{base: l, names: set, include: false}}}
	return picked, rest
}

// Watch resolves l in a memo. Readers of the memo re-run only when the
// resolved values change.
func Watch(rt *reactive.Runtime, l Layer) *reactive.Memo[Values] {
	return reactive.NewNamedMemo(rt, "props", func() Values {
		return Resolve(l)
	}).WithEquals(func(a, b Values) bool {
		return reflect.DeepEqual(a, b)
	})
}
