// Package resource loads asynchronous data into a reactive graph.
//
// A Resource tracks a source key reactively. Every time the key changes, or
// Refetch is called, a fetch starts on its own goroutine. The result is
// committed back on the runtime goroutine through Runtime.Dispatch, and only
// if no newer request was issued in the meantime.
//
// Basic usage:
//
//	candles := resource.New(rt,
//	    func() (string, bool) { return symbol.Get(), symbol.Get() != "" },
//	    func(ctx context.Context, sym string) ([]datafeed.Candle, error) {
//	        return feed.History(ctx, sym)
//	    },
//	    resource.RetryOnError(2, time.Second),
//	)
//
//	label := resource.Match(candles,
//	    resource.OnLoading[[]datafeed.Candle](func() string { return "loading" }),
//	    resource.OnError[[]datafeed.Candle](func(err error) string { return err.Error() }),
//	    resource.OnReady(func(c []datafeed.Candle) string { return fmt.Sprint(len(c), " bars") }),
//	)
//
// States move Unresolved → Pending → Ready | Errored on the first request,
// and Ready → Refreshing → Ready | Errored afterwards.
package resource
