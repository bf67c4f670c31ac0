// Package datafeed provides OHLCV candles for the demo chart: a decoder for
// chart payloads in the Yahoo Finance v8 shape, feeds reading such payloads
// over HTTP or from an S3-compatible bucket, and a deterministic random-walk
// feed for offline use.
package datafeed
