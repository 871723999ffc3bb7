package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultServiceName    = "parking-grid"
	DefaultOTLPEndpoint   = "http://localhost:4318"
	DefaultMetricInterval = 5 * time.Second
	serviceVersion        = "1.0.0"
)

type Options struct {
	ServiceName    string
	Environment    string
	Endpoint       string
	MetricInterval time.Duration
}

// Provider hands out the tracer and meter the rest of the service records
// with, and owns the SDK providers behind them.
type Provider struct {
	tracer    trace.Tracer
	meter     metric.Meter
	shutdowns []func(context.Context) error
}

// New wires OTLP/HTTP exporters for traces, metrics and logs and installs
// them as the global providers.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultOTLPEndpoint
	}
	if opts.MetricInterval <= 0 {
		opts.MetricInterval = DefaultMetricInterval
	}

	resAttrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(serviceVersion),
			semconv.DeploymentEnvironment(opts.Environment),
		),
		resource.WithFromEnv(),
	}

	res, err := resource.New(ctx, resAttrs...)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(opts.Endpoint+"/v1/traces"),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(opts.Endpoint+"/v1/metrics"),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(opts.MetricInterval),
		)),
	)

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(opts.Endpoint+"/v1/logs"),
		otlploghttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	global.SetLoggerProvider(loggerProvider)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tracer: tracerProvider.Tracer(opts.ServiceName),
		meter:  meterProvider.Meter(opts.ServiceName),
		shutdowns: []func(context.Context) error{
			tracerProvider.Shutdown,
			meterProvider.Shutdown,
			loggerProvider.Shutdown,
		},
	}, nil
}

// NewNoop returns a Provider that records nothing.
func NewNoop() *Provider {
	return FromProviders(DefaultServiceName, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
}

// FromProviders wraps providers the caller owns; Shutdown leaves them alone.
func FromProviders(name string, tp trace.TracerProvider, mp metric.MeterProvider) *Provider {
	return &Provider{
		tracer: tp.Tracer(name),
		meter:  mp.Meter(name),
	}
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

func (p *Provider) Meter() metric.Meter {
	return p.meter
}

func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range p.shutdowns {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
