// Package reconcile maps keyed lists and computes the edits between two
// orderings of keys.
//
// Diff is a pure function over key slices. Map builds on it: it maps each
// key once under its own owner, hands items their current value and
// position through reactive getters, and reports the ops of every change to
// an optional Sink.
//
//	rows := reconcile.Map(rt, candles.Get,
//	    func(c datafeed.Candle) int64 { return c.Time.Unix() },
//	    func(c func() datafeed.Candle, i func() int) *Row { return newRow(rt, c, i) },
//	)
package reconcile
