// Package telemetry mirrors every recorded request into OpenTelemetry:
// one span per streamed request plus histogram instruments alongside
// the HDR collector, and counters for retries and stream stalls.
// Adapted from the teacher's internal/otel package (tracer.go,
// metrics.go): same exporter selection and resource-building shape, but
// collapsed into a single per-Orchestrator-instance Provider rather
// than a package-level singleton — this repo carries no global state.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ExporterType selects where spans and metrics go.
type ExporterType string

const (
	ExporterNone     ExporterType = "none"
	ExporterStdout   ExporterType = "stdout"
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	ExporterOTLPHTTP ExporterType = "otlp-http"
)

// Config controls one Provider. Enabled defaults to false: a benchmark
// run with no telemetry configured pays no OTLP cost.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	ExporterType   ExporterType
	OTLPEndpoint   string
	OTLPInsecure   bool
}

// DefaultConfig returns telemetry disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ServiceName:  "llm-latency-lens",
		ExporterType: ExporterNone,
	}
}

// Provider owns one tracer and one meter plus the instruments every
// recorded request feeds. Nothing here is a package-level singleton:
// an Orchestrator is handed a *Provider explicitly, same as it is
// handed a Recorder and a ProgressReporter.
type Provider struct {
	cfg Config

	tracer trace.Tracer
	meter  metric.Meter

	ttftHistogram   metric.Float64Histogram
	itlHistogram    metric.Float64Histogram
	totalHistogram  metric.Float64Histogram
	throughputGauge metric.Float64Histogram
	retryCounter    metric.Int64Counter
	stallCounter    metric.Int64Counter

	shutdownTrace  func(context.Context) error
	shutdownMetric func(context.Context) error
}

// NewProvider builds a Provider from cfg. A disabled or ExporterNone
// config returns a Provider backed by a no-op tracer and a meter with no
// reader attached, so every Recorder.Record/RecordRetry/RecordStall call
// is safe and exports nothing when telemetry is off.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "llm-latency-lens"
	}

	p := &Provider{cfg: cfg}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		p.tracer = noop.NewTracerProvider().Tracer(cfg.ServiceName)
		p.meter = sdkmetric.NewMeterProvider().Meter(cfg.ServiceName)
		p.shutdownTrace = func(context.Context) error { return nil }
		p.shutdownMetric = func(context.Context) error { return nil }
		if err := p.registerInstruments(); err != nil {
			return nil, err
		}
		return p, nil
	}

	res, err := p.resource(cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	traceExporter, err := p.traceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	p.tracer = tp.Tracer(cfg.ServiceName)
	p.shutdownTrace = tp.Shutdown

	metricExporter, err := p.metricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	p.meter = mp.Meter(cfg.ServiceName)
	p.shutdownMetric = mp.Shutdown

	if err := p.registerInstruments(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) resource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes("", attrs...))
}

func (p *Provider) traceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown trace exporter type: %s", cfg.ExporterType)
	}
}

func (p *Provider) metricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()
	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown metric exporter type: %s", cfg.ExporterType)
	}
}

// registerInstruments creates the four latency/throughput histograms
// mirrored alongside the HDR collector (internal/metrics), plus retry
// and stall counters. Mirrored, not shared: the HDR collector remains
// the source of truth for percentile math (spec.md §4.6); these
// instruments exist only so an OTLP backend sees the same shape live.
func (p *Provider) registerInstruments() error {
	var err error

	if p.ttftHistogram, err = p.meter.Float64Histogram("llm_latency_lens.ttft",
		metric.WithDescription("Time to first token"), metric.WithUnit("ms")); err != nil {
		return fmt.Errorf("telemetry: ttft histogram: %w", err)
	}
	if p.itlHistogram, err = p.meter.Float64Histogram("llm_latency_lens.inter_token_latency",
		metric.WithDescription("Inter-token latency"), metric.WithUnit("ms")); err != nil {
		return fmt.Errorf("telemetry: inter-token histogram: %w", err)
	}
	if p.totalHistogram, err = p.meter.Float64Histogram("llm_latency_lens.total_latency",
		metric.WithDescription("Total request latency"), metric.WithUnit("ms")); err != nil {
		return fmt.Errorf("telemetry: total latency histogram: %w", err)
	}
	if p.throughputGauge, err = p.meter.Float64Histogram("llm_latency_lens.throughput",
		metric.WithDescription("Output tokens per second"), metric.WithUnit("tok/s")); err != nil {
		return fmt.Errorf("telemetry: throughput histogram: %w", err)
	}
	if p.retryCounter, err = p.meter.Int64Counter("llm_latency_lens.retries",
		metric.WithDescription("Count of retried provider connections")); err != nil {
		return fmt.Errorf("telemetry: retry counter: %w", err)
	}
	if p.stallCounter, err = p.meter.Int64Counter("llm_latency_lens.stream_stalls",
		metric.WithDescription("Count of SSE streams that stalled past their read timeout")); err != nil {
		return fmt.Errorf("telemetry: stall counter: %w", err)
	}
	return nil
}

// Shutdown flushes and closes both exporters. Safe to call on a
// disabled Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.shutdownTrace(ctx); err != nil {
		return err
	}
	return p.shutdownMetric(ctx)
}
