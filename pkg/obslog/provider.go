// Package obslog wires structured logging and OpenTelemetry tracing/metrics
// for the governance runtime: RED metrics (Rate, Errors, Duration) on every
// lifecycle operation, plus slog helpers that attach envelope, principal,
// and decision context to log lines without repeating key names at every
// call site.
package obslog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OpenTelemetry providers backing a Provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string        // e.g. "localhost:4317" for gRPC
	SampleRate     float64       // 0.0 to 1.0, default 1.0
	BatchTimeout   time.Duration
	Enabled        bool
	Insecure       bool
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "actiongov",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        true,
		Insecure:       false,
	}
}

// Provider bundles the tracer, meter, and lifecycle-operation RED metrics
// used across the orchestrator.
type Provider struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	proposalCounter  metric.Int64Counter
	denialCounter    metric.Int64Counter
	approvalCounter  metric.Int64Counter
	durationHist     metric.Float64Histogram
	activeEnvelopes  metric.Int64UpDownCounter
}

// New builds a Provider. When cfg.Enabled is false, it returns a Provider
// whose tracer/meter are the global no-op implementations.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{config: cfg, logger: logger.With("component", "obslog")}

	if !cfg.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		p.tracer = otel.Tracer("actiongov")
		p.meter = otel.Meter("actiongov")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
			attribute.String("actiongov.component", "governor"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("obslog: build resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("obslog: init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("obslog: init metric provider: %w", err)
	}

	p.tracer = otel.Tracer("actiongov.governor", trace.WithInstrumentationVersion(cfg.ServiceVersion))
	p.meter = otel.Meter("actiongov.governor", metric.WithInstrumentationVersion(cfg.ServiceVersion))

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("obslog: init metrics: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
		"endpoint", cfg.OTLPEndpoint,
		"sample_rate", cfg.SampleRate,
	)
	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.SampleRate)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(p.config.BatchTimeout)),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initMetrics() error {
	var err error
	if p.proposalCounter, err = p.meter.Int64Counter("actiongov.proposals.total",
		metric.WithDescription("Total action proposals evaluated"), metric.WithUnit("{proposal}")); err != nil {
		return err
	}
	if p.denialCounter, err = p.meter.Int64Counter("actiongov.denials.total",
		metric.WithDescription("Total proposals denied by policy evaluation"), metric.WithUnit("{denial}")); err != nil {
		return err
	}
	if p.approvalCounter, err = p.meter.Int64Counter("actiongov.approvals.total",
		metric.WithDescription("Total approval decisions recorded"), metric.WithUnit("{approval}")); err != nil {
		return err
	}
	if p.durationHist, err = p.meter.Float64Histogram("actiongov.operation.duration",
		metric.WithDescription("Lifecycle operation duration in seconds"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0)); err != nil {
		return err
	}
	if p.activeEnvelopes, err = p.meter.Int64UpDownCounter("actiongov.envelopes.active",
		metric.WithDescription("Envelopes currently in flight"), metric.WithUnit("{envelope}")); err != nil {
		return err
	}
	return nil
}

// Shutdown flushes and stops the trace/metric providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown metric provider", "error", err)
		}
	}
	return nil
}

// Tracer returns the configured tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Meter returns the configured meter.
func (p *Provider) Meter() metric.Meter { return p.meter }

// Logger returns the base structured logger.
func (p *Provider) Logger() *slog.Logger { return p.logger }

// TrackOperation starts a span and active-envelope gauge for a lifecycle
// operation (propose, approve, execute, undo), returning a derived context
// and a completion func recording duration/error on return.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))

	if p.activeEnvelopes != nil {
		p.activeEnvelopes.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if p.proposalCounter != nil && name == "propose" {
		p.proposalCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	return ctx, func(err error) {
		if p.activeEnvelopes != nil {
			p.activeEnvelopes.Add(ctx, -1, metric.WithAttributes(attrs...))
		}
		if p.durationHist != nil {
			p.durationHist.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		}
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}

// RecordDenial increments the denial counter for one evaluated check code.
func (p *Provider) RecordDenial(ctx context.Context, checkCode string) {
	if p.denialCounter != nil {
		p.denialCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("check_code", checkCode)))
	}
}

// RecordApproval increments the approval counter for one recorded decision.
func (p *Provider) RecordApproval(ctx context.Context, decision string) {
	if p.approvalCounter != nil {
		p.approvalCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
	}
}
