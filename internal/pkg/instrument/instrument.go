package instrument

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	defaultServiceName     = "phoneverify"
	defaultMetricsInterval = 15 * time.Second
)

// Instrumentation hands out tracers and meters and flushes them on shutdown.
type Instrumentation interface {
	Tracer(name string) trace.Tracer
	Meter(name string) metric.Meter
	Shutdown(ctx context.Context) error
}

// Config drives OpenTelemetry setup. When Enabled is false only the slog
// logger is installed and spans and metrics go nowhere.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is a host:port gRPC collector address.
	OTLPEndpoint string
	OTLPSecure   bool

	// TraceSampleRatio is clamped to [0,1] and applied to root spans only.
	TraceSampleRatio float64
	MetricsInterval  time.Duration

	MaskFields []string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = defaultMetricsInterval
	}
	c.TraceSampleRatio = min(max(c.TraceSampleRatio, 0), 1)

	return c
}

type provider struct {
	tracers  trace.TracerProvider
	meters   metric.MeterProvider
	shutdown []func(context.Context) error
}

func (p *provider) Tracer(name string) trace.Tracer {
	return p.tracers.Tracer(name)
}

func (p *provider) Meter(name string) metric.Meter {
	return p.meters.Meter(name)
}

// Shutdown flushes pending spans, metrics and logs. Every provider is shut
// down even when an earlier one fails.
func (p *provider) Shutdown(ctx context.Context) error {
	errs := make([]error, 0, len(p.shutdown))
	for _, fn := range p.shutdown {
		errs = append(errs, fn(ctx))
	}

	return errors.Join(errs...)
}

// NewNoop returns an Instrumentation that records nothing. Tests use it.
func NewNoop() Instrumentation {
	return &provider{
		tracers: tracenoop.NewTracerProvider(),
		meters:  metricnoop.NewMeterProvider(),
	}
}

// New installs the JSON slog logger as default and, when enabled, exports
// traces, metrics and logs over OTLP gRPC.
func New(ctx context.Context, cfg Config) (Instrumentation, error) {
	cfg = cfg.withDefaults()

	if !cfg.Enabled {
		slog.SetDefault(NewLogger(os.Stdout, cfg.ServiceName, cfg.LogLevel, nil, cfg.MaskFields))
		return NewNoop(), nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	exp, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TraceSampleRatio))),
		sdktrace.WithBatcher(exp.trace),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metric, sdkmetric.WithInterval(cfg.MetricsInterval))),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.log)),
	)

	slog.SetDefault(NewLogger(os.Stdout, cfg.ServiceName, cfg.LogLevel, lp, cfg.MaskFields))

	return &provider{
		tracers:  tp,
		meters:   mp,
		shutdown: []func(context.Context) error{tp.Shutdown, mp.Shutdown, lp.Shutdown},
	}, nil
}

type exporters struct {
	trace  *otlptrace.Exporter
	metric *otlpmetricgrpc.Exporter
	log    *otlploggrpc.Exporter
}

// newExporters dials the collector once per signal. Exporters built before a
// failure are shut down so no gRPC connection is left behind.
func newExporters(ctx context.Context, cfg Config) (*exporters, error) {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if !cfg.OTLPSecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	var (
		exp exporters
		err error
	)
	if exp.trace, err = otlptracegrpc.New(ctx, traceOpts...); err != nil {
		return nil, err
	}
	if exp.metric, err = otlpmetricgrpc.New(ctx, metricOpts...); err != nil {
		return nil, errors.Join(err, exp.trace.Shutdown(ctx))
	}
	if exp.log, err = otlploggrpc.New(ctx, logOpts...); err != nil {
		return nil, errors.Join(err, exp.trace.Shutdown(ctx), exp.metric.Shutdown(ctx))
	}

	return &exp, nil
}
