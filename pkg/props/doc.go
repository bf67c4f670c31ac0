// Package props resolves component properties from an ordered stack of
// override layers.
//
// Each layer maps prop names to values. Later layers win; a nil value does
// not override. Layers may be static (Values) or computed on every lookup
// (Func), in which case a lookup made inside a computation subscribes it to
// whatever the layer reads.
//
//	var Period = props.NewKey("period", "1d")
//
//	p := props.Merge(
//	    props.Values{"period": "1d", "theme": "light"},
//	    props.Func(func() props.Values { return user.Get() }),
//	    props.Set(Period, "1h"),
//	)
//	period := props.Get(p, Period) // "1h"
package props
