package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/nativebridge/pkg/bridge"
)

// Default tracer name.
const defaultTracerName = "nativebridge"

// TracerConfig configures Tracer.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "nativebridge").
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// IdlePolls traces polls that found nothing pending.
	IdlePolls bool

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// Context is the parent context of every span.
	Context context.Context
}

// TracerOption configures Tracer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(t trace.Tracer) TracerOption {
	return func(c *TracerConfig) {
		c.Tracer = t
	}
}

// WithIdlePolls enables spans for polls with no pending events.
func WithIdlePolls(enabled bool) TracerOption {
	return func(c *TracerConfig) {
		c.IdlePolls = enabled
	}
}

// WithAttributes adds attributes to every span, such as a recording
// session id.
func WithAttributes(attrs ...attribute.KeyValue) TracerOption {
	return func(c *TracerConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// WithParentContext sets the context spans are started from.
func WithParentContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// Tracer is a bridge.Observer that emits a span per flush and per poll.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracer is given. Configure it in main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type Tracer struct {
	config TracerConfig
}

var _ bridge.Observer = (*Tracer)(nil)

// NewTracer creates a Tracer.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(config.TracerName)
	}
	return &Tracer{config: config}
}

// ObserveFlush implements bridge.Observer.
func (t *Tracer) ObserveFlush(s bridge.FlushStats) {
	attrs := append([]attribute.KeyValue{
		attribute.String("nativebridge.mode", string(s.Mode)),
		attribute.Int64("nativebridge.seq", int64(s.Seq)),
		attribute.Int("nativebridge.ops", s.Ops),
		attribute.Int("nativebridge.listens", s.Listens),
		attribute.Bool("nativebridge.snapshot", s.Snapshot),
		attribute.Bool("nativebridge.rejected", s.Rejected),
		attribute.Int("nativebridge.commands", s.Commands),
		attribute.Int("nativebridge.payload_bytes", s.PayloadBytes),
	}, t.config.Attributes...)

	_, span := t.config.Tracer.Start(t.config.Context, "nativebridge.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(s.Start),
	)
	if s.Rejected {
		span.AddEvent("batch rejected", trace.WithTimestamp(s.Start))
	}
	if s.Err != nil {
		span.RecordError(s.Err)
		span.SetStatus(codes.Error, s.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(s.Start.Add(s.Duration)))
}

// ObservePoll implements bridge.Observer.
func (t *Tracer) ObservePoll(s bridge.PollStats) {
	if s.Pending == 0 && !t.config.IdlePolls {
		return
	}
	attrs := append([]attribute.KeyValue{
		attribute.Int64("nativebridge.pending", int64(s.Pending)),
		attribute.Int("nativebridge.dispatched", s.Dispatched),
		attribute.Int("nativebridge.skipped", s.Skipped),
		attribute.Int64("nativebridge.dropped_events", int64(s.DroppedEvents)),
		attribute.Int64("nativebridge.dropped_details", int64(s.DroppedDetails)),
	}, t.config.Attributes...)

	_, span := t.config.Tracer.Start(t.config.Context, "nativebridge.poll",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(s.Start),
	)
	span.End(trace.WithTimestamp(s.Start.Add(s.Duration)))
}

// ObserveDispatch implements bridge.Observer. Drains carry no timing,
// so failures are attached to the current span of the parent context
// as events.
func (t *Tracer) ObserveDispatch(s bridge.DispatchStats) {
	if s.Failed == 0 && s.Panics == 0 && s.Dropped == 0 {
		return
	}
	span := trace.SpanFromContext(t.config.Context)
	span.AddEvent("dispatch failures", trace.WithAttributes(
		attribute.Int("nativebridge.failed", s.Failed),
		attribute.Int("nativebridge.panics", s.Panics),
		attribute.Int("nativebridge.dropped", s.Dropped),
	))
}
