package reconcile

import (
	kerrors "github.com/vango-dev/klinecore/internal/errors"
	"github.com/vango-dev/klinecore/pkg/reactive"
)

// Sink consumes ops as a list is reconciled. out is the mapped value the op
// concerns: the new value for creates, moves and updates, the old one for
// removes.
type Sink[K comparable, U any] interface {
	Apply(op Op[K], out U)
}

// SinkFunc adapts a function to Sink.
type SinkFunc[K comparable, U any] func(op Op[K], out U)

// Apply calls f.
func (f SinkFunc[K, U]) Apply(op Op[K], out U) {
	f(op, out)
}

// List is the mapped form of a keyed list. Each item is mapped once, under
// its own owner, and keeps its mapped value while its key stays in the list.
type List[K comparable, U any] struct {
	memo    *reactive.Memo[[]U]
	ops     func() []Op[K]
	dispose func()
}

// Get returns the mapped values in list order and subscribes the running
// computation. The slice changes only when items are added, removed or
// reordered.
func (l *List[K, U]) Get() []U {
	return l.memo.Get()
}

// Peek returns the mapped values without subscribing.
func (l *List[K, U]) Peek() []U {
	return l.memo.Peek()
}

// Ops returns the ops of the last reconciliation.
func (l *List[K, U]) Ops() []Op[K] {
	return l.ops()
}

// Dispose stops tracking the list and disposes every item owner.
func (l *List[K, U]) Dispose() {
	l.dispose()
}

type row[T any, K comparable, U any] struct {
	key     K
	item    *reactive.Signal[T]
	index   *reactive.Signal[int]
	out     U
	dispose func()
}

func (r *row[T, K, U]) close() {
	r.dispose()
	r.item.Release()
	r.index.Release()
}

type mapper[T any, K comparable, U any] struct {
	rt       *reactive.Runtime
	key      func(T) K
	mapFn    func(item func() T, index func() int) U
	itemEq   func(a, b T) bool
	fallback func() U
	sink     Sink[K, U]

	keys     []K
	rows     []*row[T, K, U]
	outs     []U
	fb       *row[T, K, U]
	ops      []Op[K]
	disposed bool
}

// Map maps a keyed list. list is tracked; key identifies items across
// updates; mapFn runs once per new key with getters for the current item and
// its position, both reactive. Items whose key leaves the list have their
// owner disposed exactly once. Map panics if key or mapFn is nil.
func Map[T any, K comparable, U any](
	rt *reactive.Runtime,
	list func() []T,
	key func(T) K,
	mapFn func(item func() T, index func() int) U,
	opts ...Option,
) *List[K, U] {
	if key == nil || mapFn == nil {
		panic(kerrors.New("E301"))
	}
	o := &Options{name: "list"}
	for _, opt := range opts {
		opt(o)
	}
	m := &mapper[T, K, U]{
		rt:       rt,
		key:      key,
		mapFn:    mapFn,
		itemEq:   typedOption[func(a, b T) bool](o.itemEquals, "WithItemEquals"),
		fallback: typedOption[func() U](o.fallback, "WithFallback"),
		sink:     typedOption[Sink[K, U]](o.sink, "WithSink"),
	}
	if m.itemEq == nil {
		m.itemEq = reactive.Equals[T]
	}

	l := &List[K, U]{
		ops: func() []Op[K] { return m.ops },
	}
	l.memo = reactive.NewNamedMemo(rt, o.name, func() []U {
		items := list()
		var out []U
		rt.Untracked(func() { out = m.reconcile(items) })
		return out
	})
	l.dispose = func() {
		l.memo.Dispose()
		m.close()
	}
	if owner := rt.Owner(); owner != nil {
		owner.OnCleanup(l.dispose)
	}
	return l
}

func (m *mapper[T, K, U]) reconcile(items []T) []U {
	if m.disposed {
		return m.outs
	}
	keys := make([]K, len(items))
	for i, it := range items {
		keys[i] = m.key(it)
	}

	src, removed := match(m.keys, keys)
	ops, targets := plan(m.keys, keys, src, removed)
	outs := make([]U, len(ops), len(ops)+1)

	for k, i := range removed {
		// Removes are planned in descending order.
		outs[len(removed)-1-k] = m.rows[i].out
		m.rows[i].close()
	}

	rows := make([]*row[T, K, U], len(items))
	var updates []int
	for j, it := range items {
		if src[j] < 0 {
			rows[j] = m.create(it, j, keys[j])
			continue
		}
		r := m.rows[src[j]]
		r.index.Set(j)
		if !m.itemEq(r.item.Peek(), it) {
			r.item.Set(it)
			updates = append(updates, j)
		}
		rows[j] = r
	}
	for k, j := range targets {
		if j >= 0 {
			outs[k] = rows[j].out
		}
	}
	for _, j := range updates {
		ops = append(ops, Op[K]{Kind: OpUpdate, Key: keys[j], Index: j})
		outs = append(outs, rows[j].out)
	}

	structural := len(ops) > len(updates)
	switch {
	case len(items) > 0 && m.fb != nil:
		ops = append([]Op[K]{{Kind: OpRemove, From: 0, Fallback: true}}, ops...)
		outs = append([]U{m.fb.out}, outs...)
		m.fb.dispose()
		m.fb = nil
		structural = true
	case len(items) == 0 && m.fallback != nil && m.fb == nil:
		m.fb = &row[T, K, U]{}
		m.rt.CreateRoot(func(dispose func()) {
			m.fb.dispose = dispose
			m.fb.out = m.fallback()
		})
		ops = append(ops, Op[K]{Kind: OpCreate, Index: 0, Fallback: true})
		outs = append(outs, m.fb.out)
		structural = true
	}

	m.keys, m.rows, m.ops = keys, rows, ops
	if m.sink != nil {
		for k, op := range ops {
			m.sink.Apply(op, outs[k])
		}
	}
	if !structural {
		return m.outs
	}
	if m.fb != nil {
		m.outs = []U{m.fb.out}
		return m.outs
	}
	m.outs = make([]U, len(rows))
	for j, r := range rows {
		m.outs[j] = r.out
	}
	return m.outs
}

func (m *mapper[T, K, U]) create(it T, j int, k K) *row[T, K, U] {
	r := &row[T, K, U]{key: k}
	r.item = reactive.NewSignal(m.rt, it).WithEquals(m.itemEq)
	r.index = reactive.NewSignal(m.rt, j)
	m.rt.CreateRoot(func(dispose func()) {
		r.dispose = dispose
		r.out = m.mapFn(r.item.Get, r.index.Get)
	})
	return r
}

func (m *mapper[T, K, U]) close() {
	if m.disposed {
		return
	}
	m.disposed = true
	for _, r := range m.rows {
		r.close()
	}
	m.rows, m.keys = nil, nil
	if m.fb != nil {
		m.fb.dispose()
		m.fb = nil
	}
}
