// Package bridge streams reconcile ops to remote renderers over WebSocket.
//
// A Hub keeps the current state of every published list. Lists feed it
// through a reconcile.Sink obtained with Sink; the ops collected during a
// flush are sent as one frame per list when the runtime reports the flush
// completed (the Hub is a reactive.Observer) or when Flush is called.
//
// A renderer connecting to /ws first receives a hello frame with its client
// id, then a snapshot frame, then incremental ops frames. Sending
// {"type":"resync"} asks for a fresh snapshot.
//
//	hub := bridge.NewHub(bridge.DefaultConfig(), bridge.WithLogger(logger))
//	rt := reactive.NewRuntime(reactive.WithObserver(hub))
//	reconcile.Map(rt, candles, key, render,
//	    reconcile.WithSink(bridge.Sink[int64, Bar](hub, "bars")))
//	http.ListenAndServe(":8080", bridge.NewRouter(hub, bridge.RouterOptions{}))
package bridge
