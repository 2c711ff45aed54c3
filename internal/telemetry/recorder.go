package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// RequestRecorder is satisfied by internal/metrics.Collector. Declared
// here rather than imported so Recorder never pulls in the collector
// package; it also happens to satisfy internal/orchestrator.Recorder,
// letting an Orchestrator hold a single Recorder field that both
// records into the HDR collector and mirrors into OpenTelemetry.
type RequestRecorder interface {
	Record(m types.RequestMetrics)
}

// Recorder wraps a RequestRecorder (normally *metrics.Collector) and
// mirrors every recorded request into a Provider: one span per request
// plus the four latency/throughput histograms on success.
type Recorder struct {
	inner    RequestRecorder
	provider *Provider
}

// NewRecorder returns a Recorder. provider may be one built with
// telemetry disabled, in which case span/metric recording is a cheap
// no-op.
func NewRecorder(inner RequestRecorder, provider *Provider) *Recorder {
	return &Recorder{inner: inner, provider: provider}
}

// Record satisfies RequestRecorder (and, structurally,
// orchestrator.Recorder): it forwards to inner first so the HDR
// collector never misses a sample even if span creation panics on a
// misconfigured exporter, then emits the OpenTelemetry view.
func (r *Recorder) Record(m types.RequestMetrics) {
	r.inner.Record(m)
	r.emit(m)
}

func (r *Recorder) emit(m types.RequestMetrics) {
	ctx := context.Background()
	start := m.Timestamp
	end := start.Add(m.TotalLatency)

	spanAttrs := []attribute.KeyValue{
		attribute.String("provider", m.Provider.String()),
		attribute.String("model", m.Model),
		attribute.Bool("success", m.Success),
	}

	_, span := r.provider.tracer.Start(ctx, "llm_request",
		trace.WithTimestamp(start),
		trace.WithAttributes(spanAttrs...),
	)
	if !m.Success {
		span.SetStatus(codes.Error, errString(m.Error))
	}
	span.End(trace.WithTimestamp(end))

	if !m.Success {
		return
	}

	recordOpt := metric.WithAttributes(
		attribute.String("provider", m.Provider.String()),
		attribute.String("model", m.Model),
	)
	r.provider.ttftHistogram.Record(ctx, durationMillis(m.TTFT), recordOpt)
	r.provider.totalHistogram.Record(ctx, durationMillis(m.TotalLatency), recordOpt)
	r.provider.throughputGauge.Record(ctx, m.TokensPerSecond, recordOpt)

	for _, d := range m.InterTokenLatencies {
		r.provider.itlHistogram.Record(ctx, durationMillis(d), recordOpt)
	}
}

// RecordRetry increments the retry counter for provider. Called from
// the retry middleware (internal/providers.WithRetry) via an optional
// hook so the core retry loop stays free of a telemetry import.
func (p *Provider) RecordRetry(ctx context.Context, provider string) {
	p.retryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordStall increments the stall counter for provider. Called when an
// SSE decoder's read times out waiting for the next line.
func (p *Provider) RecordStall(ctx context.Context, provider string) {
	p.stallCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

func errString(s *string) string {
	if s == nil {
		return "error"
	}
	return *s
}

func durationMillis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
