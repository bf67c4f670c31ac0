// Package config loads klinecore configuration.
//
// The configuration lives in klinecore.yaml (or klinecore.json) and covers
// the reactive runtime, the candle resource, the renderer bridge, telemetry,
// logging, the candle feed and the demo random walk. Every field has a
// default, so an empty YAML file is valid.
//
// # Configuration File Structure
//
//	runtime:
//	  max_updates_per_flush: 10000
//	  max_fetch_starts: 20
//	  fetch_window: 1s
//	resource:
//	  refresh_schedule: "*/5 * * * * *"
//	  stale_time: 30s
//	  retries: 2
//	  retry_delay: 500ms
//	bridge:
//	  addr: ":8080"
//	  heartbeat: 30s
//	  allowed_origins: ["http://localhost:3000"]
//	telemetry:
//	  metrics: true
//	  tracing: false
//	logging:
//	  level: info
//	  format: json
//	feed:
//	  source: walk   # or http, s3
//	  url: ""        # chart URL with %s, or s3://bucket/prefix/
//	demo:
//	  symbols: [AAPL, MSFT]
//	  seed: 7
//	  bars: 365
//
// KLINECORE_ADDR, KLINECORE_LOG_LEVEL and KLINECORE_LOG_FORMAT override the
// file.
//
// # Usage
//
//	cfg, err := config.LoadFile("klinecore.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	rt := reactive.NewRuntime(cfg.Runtime.Options()...)
package config
