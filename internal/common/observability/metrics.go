package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"query-orchestrator/internal/common/logger"
)

type Observability struct {
	serviceName    string
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	queryCounter   otelmetric.Int64Counter
	queryDuration  otelmetric.Float64Histogram
	agentCounter   otelmetric.Int64Counter
}

type options struct {
	registerer     promclient.Registerer
	jaegerEndpoint string
	logger         logger.Logger
}

type Option func(*options)

// WithRegisterer sends exported metrics to reg instead of the default registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithJaeger enables span export to a Jaeger collector.
func WithJaeger(endpoint string) Option {
	return func(o *options) { o.jaegerEndpoint = endpoint }
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// New installs the global meter provider and, when configured, the global
// tracer provider. Exporter failures degrade to an instance that records nothing.
func New(serviceName string, opts ...Option) *Observability {
	o := options{logger: logger.NewNoOpLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	obs := &Observability{serviceName: serviceName}

	var exporterOpts []prometheus.Option
	if o.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(o.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		o.logger.Error("Failed to create Prometheus exporter", map[string]interface{}{"error": err.Error()})
	} else {
		provider := metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(provider)
		obs.meterProvider = provider
		obs.meter = provider.Meter(serviceName)

		obs.queryCounter, _ = obs.meter.Int64Counter(
			"queries.answered",
			otelmetric.WithDescription("Number of queries answered"),
		)
		obs.queryDuration, _ = obs.meter.Float64Histogram(
			"queries.duration",
			otelmetric.WithDescription("Query answering duration"),
			otelmetric.WithUnit("ms"),
		)
		obs.agentCounter, _ = obs.meter.Int64Counter(
			"agents.dispatched",
			otelmetric.WithDescription("Number of agent dispatches"),
		)
	}

	if o.jaegerEndpoint != "" {
		tp, err := newTracerProvider(serviceName, o.jaegerEndpoint)
		if err != nil {
			o.logger.Error("Failed to create Jaeger exporter", map[string]interface{}{
				"error":    err.Error(),
				"endpoint": o.jaegerEndpoint,
			})
		} else {
			otel.SetTracerProvider(tp)
			obs.tracerProvider = tp
		}
	}

	return obs
}

// Tracer returns a tracer from the global provider.
func (o *Observability) Tracer() trace.Tracer {
	return otel.Tracer(o.serviceName)
}

// StartSpan starts a span on the service tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordQuery(ctx context.Context, status string) {
	if o.queryCounter != nil {
		o.queryCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordQueryDuration(ctx context.Context, duration time.Duration, status string) {
	if o.queryDuration != nil {
		o.queryDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordAgent(ctx context.Context, agent, status string) {
	if o.agentCounter != nil {
		o.agentCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("agent", agent),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
