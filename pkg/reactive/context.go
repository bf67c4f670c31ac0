package reactive

// Context carries a value down the ownership tree.
//
//	var Theme = reactive.CreateContext("light")
//
//	Theme.Provide(rt, "dark", func() {
//	    rt.Effect(func() reactive.Cleanup {
//	        fmt.Println(Theme.Use(rt)) // dark
//	        return nil
//	    })
//	})
type Context[T any] struct {
	// key identifies this context in owner value maps.
	key any

	// defaultValue is returned by Use when no owner provides a value.
	defaultValue T
}

type contextKey[T any] struct {
	ctx *Context[T]
}

// CreateContext creates a context whose Use returns defaultValue until a
// value is provided.
func CreateContext[T any](defaultValue T) *Context[T] {
	ctx := &Context[T]{defaultValue: defaultValue}
	ctx.key = contextKey[T]{ctx: ctx}
	return ctx
}

// Provide runs fn under a new owner holding value. The owner is a child of
// the current owner. Errors raised by the graph while fn runs are returned.
func (c *Context[T]) Provide(rt *Runtime, value T, fn func()) error {
	id := rt.alloc(kindOwner, "")
	rt.adopt(id)
	rt.nodes[id].values = map[any]any{c.key: value}
	return rt.guard(func() {
		rt.withOwner(id, fn)
	})
}

// Use returns the value provided by the closest owner, or the default.
func (c *Context[T]) Use(rt *Runtime) T {
	for id := rt.owner; id != noNode; id = rt.parent(rt.nodes[id]) {
		if v, ok := rt.nodes[id].values[c.key]; ok {
			return v.(T)
		}
	}
	return c.defaultValue
}
