package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/klinecore/pkg/features/resource"
	"github.com/vango-dev/klinecore/pkg/reactive"
)

// Default tracer name for klinecore spans.
const defaultTracerName = "klinecore"

// TracingConfig configures Tracer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "klinecore").
	TracerName string

	// Provider supplies the tracer. If nil, the global provider is used.
	Provider trace.TracerProvider

	// SkipIdleFlushes drops spans for flushes that ran no computation.
	SkipIdleFlushes bool
}

// TracingOption configures Tracer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = tp
	}
}

// WithSkipIdleFlushes enables or disables dropping idle flush spans.
func WithSkipIdleFlushes(skip bool) TracingOption {
	return func(c *TracingConfig) {
		c.SkipIdleFlushes = skip
	}
}

// Tracer records one span per flush and one per resource request. Spans are
// created after the fact with explicit start and end timestamps.
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// given. Configure it in main() before creating the runtime:
//
//	otel.SetTracerProvider(tp)
type Tracer struct {
	config TracingConfig
	tracer trace.Tracer
	ctx    context.Context
}

// NewTracer creates a Tracer.
func NewTracer(opts ...TracingOption) *Tracer {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	provider := config.Provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{
		config: config,
		tracer: provider.Tracer(config.TracerName),
		ctx:    context.Background(),
	}
}

// FlushCompleted implements reactive.Observer.
func (t *Tracer) FlushCompleted(s reactive.FlushStats) {
	if t.config.SkipIdleFlushes && s.Computations == 0 && s.Err == nil {
		return
	}
	_, span := t.tracer.Start(t.ctx, "klinecore.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(s.Start),
		trace.WithAttributes(
			attribute.Int("klinecore.computations", s.Computations),
		),
	)
	if s.Err != nil {
		span.RecordError(s.Err)
		span.SetStatus(codes.Error, s.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(s.Start.Add(s.Duration)))
}

// FetchStarted implements resource.Observer. The span is recorded when the
// request finishes.
func (t *Tracer) FetchStarted(string) {}

// FetchCompleted implements resource.Observer.
func (t *Tracer) FetchCompleted(s resource.FetchStats) {
	_, span := t.tracer.Start(t.ctx, "klinecore.fetch "+s.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(s.Start),
		trace.WithAttributes(
			attribute.String("klinecore.resource", s.Name),
			attribute.Int("klinecore.attempts", s.Attempts),
			attribute.Bool("klinecore.superseded", s.Superseded),
		),
	)
	if s.Err != nil {
		span.RecordError(s.Err)
		span.SetStatus(codes.Error, s.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(s.Start.Add(s.Duration)))
}
