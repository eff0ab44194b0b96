// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"pos-workers/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Options selects which exporters New wires up.
type Options struct {
	ServiceName    string
	Version        string
	MetricsEnabled bool
	TracingEnabled bool
	JaegerEndpoint string
	SampleRatio    float64
}

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	log            logger.Logger
}

// New builds the meter provider (exported through the Prometheus registry
// served on /metrics) and, when enabled, a Jaeger tracer provider. Exporter
// failures are logged and leave that signal disabled.
func New(opts Options, log logger.Logger) *Observability {
	o := &Observability{log: log}

	if opts.MetricsEnabled {
		exporter, err := prometheus.New()
		if err != nil {
			log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
		} else {
			o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
			otel.SetMeterProvider(o.meterProvider)

			meter := o.meterProvider.Meter(opts.ServiceName)
			o.jobCounter, _ = meter.Int64Counter(
				"jobs.processed",
				otelmetric.WithDescription("Number of jobs processed"),
			)
			o.jobDuration, _ = meter.Float64Histogram(
				"jobs.duration",
				otelmetric.WithDescription("Job processing duration"),
				otelmetric.WithUnit("ms"),
			)
		}
	}

	if opts.TracingEnabled {
		tp, err := newTracerProvider(opts)
		if err != nil {
			log.Warn("failed to create jaeger tracer provider", map[string]interface{}{"error": err.Error()})
		} else {
			o.tracerProvider = tp
			otel.SetTracerProvider(tp)
		}
	}

	o.tracer = otel.Tracer(opts.ServiceName)
	return o
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.log.Warn("tracer provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.log.Warn("meter provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
