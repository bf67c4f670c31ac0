// Package telemetry exports runtime, resource, reconcile and bridge activity
// to Prometheus and OpenTelemetry.
//
// Metrics and Tracer both implement reactive.Observer and resource.Observer.
// Install them on a runtime with reactive.WithObserver; use Multi to install
// both:
//
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	tr := telemetry.NewTracer()
//	rt := reactive.NewRuntime(reactive.WithObserver(telemetry.Multi{m, tr}))
//
// Metrics collected:
//   - klinecore_flushes_total: flushes by status
//   - klinecore_flush_duration_seconds: flush wall time
//   - klinecore_computations_total: memo, computed and effect runs
//   - klinecore_fetches_started_total: resource requests by resource
//   - klinecore_fetches_total: finished requests by resource and status
//   - klinecore_fetch_duration_seconds: request time by resource
//   - klinecore_fetches_in_flight: requests not yet finished
//   - klinecore_reconcile_ops_total: reconcile ops by list and kind
//   - klinecore_bridge_clients: connected renderers
//   - klinecore_bridge_frames_total: frames written to renderers
//   - klinecore_bridge_errors_total: renderer errors by type
package telemetry
