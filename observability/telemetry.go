// Package observability provides OpenTelemetry integration, in-process
// metrics and fault audit logging for guarded calls.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/victoralfred/gotrap/trap"
)

// Telemetry provides observability features.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func())

	// RecordMetric records a metric value.
	RecordMetric(name string, value float64, labels map[string]string)

	// RecordDuration records a duration metric.
	RecordDuration(name string, duration float64, labels map[string]string)

	// RecordFault increments the fault counter.
	RecordFault(code trap.Code, labels map[string]string)

	// RecordCall increments the protected-call counter.
	RecordCall(labels map[string]string)
}

// SpanOption configures span creation.
type SpanOption func(*spanConfig)

type spanConfig struct {
	attributes []attribute.KeyValue
	kind       trace.SpanKind
}

// WithAttribute adds an attribute to the span.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(c *spanConfig) {
		switch v := value.(type) {
		case string:
			c.attributes = append(c.attributes, attribute.String(key, v))
		case int:
			c.attributes = append(c.attributes, attribute.Int(key, v))
		case int64:
			c.attributes = append(c.attributes, attribute.Int64(key, v))
		case float64:
			c.attributes = append(c.attributes, attribute.Float64(key, v))
		case bool:
			c.attributes = append(c.attributes, attribute.Bool(key, v))
		}
	}
}

// WithSpanKind sets the span kind.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// TelemetryConfig configures telemetry.
type TelemetryConfig struct {
	// ServiceName is the service name for tracing.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the service version.
	ServiceVersion string `yaml:"service_version"`

	// Environment is the deployment environment.
	Environment string `yaml:"environment"`

	// MetricsPrefix is prepended to all metric names.
	MetricsPrefix string `yaml:"metrics_prefix"`

	// EnableMetrics enables metric recording.
	EnableMetrics bool `yaml:"enable_metrics"`

	// EnableTracing enables span creation.
	EnableTracing bool `yaml:"enable_tracing"`
}

// DefaultTelemetryConfig returns default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		ServiceName:   "gotrap",
		MetricsPrefix: "gotrap_",
		EnableMetrics: true,
		EnableTracing: true,
	}
}

// telemetry is the OpenTelemetry-backed implementation.
type telemetry struct {
	config TelemetryConfig
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	callCounter  metric.Int64Counter
	faultCounter metric.Int64Counter
	callDuration metric.Float64Histogram
	activeCalls  metric.Int64UpDownCounter
}

// NewTelemetry creates a new telemetry instance.
func NewTelemetry(config TelemetryConfig) (Telemetry, error) {
	t := &telemetry{
		config: config,
		tracer: otel.Tracer(config.ServiceName),
		meter:  otel.Meter(config.ServiceName),
	}

	// Initialize metrics
	var err error

	t.callCounter, err = t.meter.Int64Counter(
		config.MetricsPrefix+"protected_calls_total",
		metric.WithDescription("Total number of protected calls"),
	)
	if err != nil {
		return nil, err
	}

	t.faultCounter, err = t.meter.Int64Counter(
		config.MetricsPrefix+"faults_total",
		metric.WithDescription("Total number of hardware faults caught"),
	)
	if err != nil {
		return nil, err
	}

	t.callDuration, err = t.meter.Float64Histogram(
		config.MetricsPrefix+"call_duration_seconds",
		metric.WithDescription("Duration of protected calls"),
	)
	if err != nil {
		return nil, err
	}

	t.activeCalls, err = t.meter.Int64UpDownCounter(
		config.MetricsPrefix+"active_calls",
		metric.WithDescription("Number of currently active protected calls"),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// StartSpan implements Telemetry.StartSpan.
func (t *telemetry) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func()) {
	if !t.config.EnableTracing {
		return ctx, func() {}
	}

	cfg := &spanConfig{
		kind: trace.SpanKindInternal,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithAttributes(cfg.attributes...),
		trace.WithSpanKind(cfg.kind),
	)

	t.activeCalls.Add(ctx, 1)

	return ctx, func() {
		t.activeCalls.Add(context.Background(), -1)
		span.End()
	}
}

// RecordMetric implements Telemetry.RecordMetric.
func (t *telemetry) RecordMetric(name string, value float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.callDuration.Record(context.Background(), value, metric.WithAttributes(attrs...))
}

// RecordDuration implements Telemetry.RecordDuration.
func (t *telemetry) RecordDuration(name string, duration float64, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.callDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordFault implements Telemetry.RecordFault.
func (t *telemetry) RecordFault(code trap.Code, labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	attrs = append(attrs, attribute.String("code", code.Name()))
	t.faultCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCall implements Telemetry.RecordCall.
func (t *telemetry) RecordCall(labels map[string]string) {
	if !t.config.EnableMetrics {
		return
	}

	attrs := labelsToAttributes(labels)
	t.callCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// labelsToAttributes converts labels to OTEL attributes.
func labelsToAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

// GuardTelemetry adapts a Telemetry to the trap.Telemetry interface
// consumed by the guard builder.
func GuardTelemetry(t Telemetry) trap.Telemetry {
	return &guardTelemetry{t: t}
}

type guardTelemetry struct {
	t Telemetry
}

func (g *guardTelemetry) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return g.t.StartSpan(ctx, name)
}

func (g *guardTelemetry) RecordMetric(name string, value float64, labels map[string]string) {
	g.t.RecordMetric(name, value, labels)
}

func (g *guardTelemetry) TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// NoopTelemetry returns a no-op telemetry implementation.
func NoopTelemetry() Telemetry {
	return &noopTelemetry{}
}

type noopTelemetry struct{}

func (t *noopTelemetry) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, func()) {
	return ctx, func() {}
}

func (t *noopTelemetry) RecordMetric(name string, value float64, labels map[string]string)      {}
func (t *noopTelemetry) RecordDuration(name string, duration float64, labels map[string]string) {}
func (t *noopTelemetry) RecordFault(code trap.Code, labels map[string]string)                   {}
func (t *noopTelemetry) RecordCall(labels map[string]string)                                    {}
