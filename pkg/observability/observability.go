// Package observability provides OpenTelemetry tracing and metrics for
// the custody core: bond lifecycle rates, governance activity, denial
// counts and emergency channel usage.
package observability

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

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string // e.g., "localhost:4317" for gRPC
	SampleRate     float64
	BatchTimeout   time.Duration
	Enabled        bool
	Insecure       bool
}

// DefaultConfig returns development defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "credence-core",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        true,
	}
}

// Provider manages OpenTelemetry trace and metric providers and the
// custody-domain counters.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	bondsCreated         metric.Int64Counter
	slashesExecuted      metric.Int64Counter
	proposalsCreated     metric.Int64Counter
	votesCast            metric.Int64Counter
	denials              metric.Int64Counter
	emergencyWithdrawals metric.Int64Counter
	custodiedAmount      metric.Int64UpDownCounter
}

// New creates an observability provider. A disabled config returns a
// provider whose recording methods are no-ops.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if !config.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
			attribute.String("credence.component", "core"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init metric provider: %w", err)
	}

	p.tracer = otel.Tracer("credence.core",
		trace.WithInstrumentationVersion(config.ServiceVersion),
	)
	p.meter = otel.Meter("credence.core",
		metric.WithInstrumentationVersion(config.ServiceVersion),
	)

	if err := p.initCustodyMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init custody metrics: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint,
	)
	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
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
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(p.config.BatchTimeout),
		),
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
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initCustodyMetrics() error {
	var err error

	p.bondsCreated, err = p.meter.Int64Counter("credence.bonds.created",
		metric.WithDescription("Bonds created"),
		metric.WithUnit("{bond}"),
	)
	if err != nil {
		return err
	}
	p.slashesExecuted, err = p.meter.Int64Counter("credence.slashes.executed",
		metric.WithDescription("Slash proposals executed"),
		metric.WithUnit("{slash}"),
	)
	if err != nil {
		return err
	}
	p.proposalsCreated, err = p.meter.Int64Counter("credence.proposals.created",
		metric.WithDescription("Slash proposals opened"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		return err
	}
	p.votesCast, err = p.meter.Int64Counter("credence.votes.cast",
		metric.WithDescription("Governance votes cast"),
		metric.WithUnit("{vote}"),
	)
	if err != nil {
		return err
	}
	p.denials, err = p.meter.Int64Counter("credence.denials.total",
		metric.WithDescription("Authorization denials"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return err
	}
	p.emergencyWithdrawals, err = p.meter.Int64Counter("credence.emergency.withdrawals",
		metric.WithDescription("Emergency withdrawals executed"),
		metric.WithUnit("{withdrawal}"),
	)
	if err != nil {
		return err
	}
	p.custodiedAmount, err = p.meter.Int64UpDownCounter("credence.custody.amount",
		metric.WithDescription("Net custodied balance in token minor units"),
		metric.WithUnit("{unit}"),
	)
	return err
}

// Shutdown gracefully shuts down the providers.
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
func (p *Provider) Tracer() trace.Tracer {
	if p.tracer == nil {
		return otel.Tracer("credence.core")
	}
	return p.tracer
}

// StartSpan starts a new span with the given name.
func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, opts...)
}

// RecordBondCreated counts a bond creation and adds its principal to
// the custodied balance.
func (p *Provider) RecordBondCreated(ctx context.Context, amount int64) {
	if p.bondsCreated != nil {
		p.bondsCreated.Add(ctx, 1)
	}
	if p.custodiedAmount != nil {
		p.custodiedAmount.Add(ctx, amount)
	}
}

// RecordWithdrawal subtracts a payout from the custodied balance.
func (p *Provider) RecordWithdrawal(ctx context.Context, amount int64) {
	if p.custodiedAmount != nil {
		p.custodiedAmount.Add(ctx, -amount)
	}
}

// RecordSlashExecuted counts an executed slash.
func (p *Provider) RecordSlashExecuted(ctx context.Context) {
	if p.slashesExecuted != nil {
		p.slashesExecuted.Add(ctx, 1)
	}
}

// RecordProposalCreated counts an opened proposal.
func (p *Provider) RecordProposalCreated(ctx context.Context) {
	if p.proposalsCreated != nil {
		p.proposalsCreated.Add(ctx, 1)
	}
}

// RecordVote counts a cast vote.
func (p *Provider) RecordVote(ctx context.Context, approve bool) {
	if p.votesCast != nil {
		p.votesCast.Add(ctx, 1, metric.WithAttributes(attribute.Bool("approve", approve)))
	}
}

// RecordDenial counts an authorization denial by role.
func (p *Provider) RecordDenial(ctx context.Context, role string) {
	if p.denials != nil {
		p.denials.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
	}
}

// RecordEmergencyWithdrawal counts an emergency withdrawal and
// subtracts it from the custodied balance.
func (p *Provider) RecordEmergencyWithdrawal(ctx context.Context, gross int64) {
	if p.emergencyWithdrawals != nil {
		p.emergencyWithdrawals.Add(ctx, 1)
	}
	if p.custodiedAmount != nil {
		p.custodiedAmount.Add(ctx, -gross)
	}
}
