package exporters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// DefaultPrometheusPrefix is prepended to every metric name when the
// caller does not configure one.
const DefaultPrometheusPrefix = "llm_latency_lens_"

// quantiles is the fixed set of quantile samples spec.md §4.7 requires
// on every summary metric.
var quantiles = []float64{0.5, 0.9, 0.95, 0.99, 0.999}

// PrometheusExporter renders agg in Prometheus text exposition format:
// three request counters and three summary metrics (TTFT, inter-token
// latency, total duration), each carrying _sum, _count, and five
// quantile samples.
type PrometheusExporter struct {
	Prefix string
}

// NewPrometheusExporter returns an exporter using prefix, or
// DefaultPrometheusPrefix if prefix is empty.
func NewPrometheusExporter(prefix string) PrometheusExporter {
	if prefix == "" {
		prefix = DefaultPrometheusPrefix
	}
	return PrometheusExporter{Prefix: prefix}
}

// Export renders the session-level counters and summaries.
func (e PrometheusExporter) Export(agg types.AggregatedMetrics) (string, error) {
	var b strings.Builder

	writeCounter(&b, e.Prefix+"requests_total", "Total number of requests", float64(agg.TotalRequests))
	writeCounter(&b, e.Prefix+"requests_successful_total", "Total number of successful requests", float64(agg.SuccessfulRequests))
	writeCounter(&b, e.Prefix+"requests_failed_total", "Total number of failed requests", float64(agg.FailedRequests))

	writeSummary(&b, e.Prefix+"ttft_milliseconds", "Time to first token, in milliseconds", agg.TTFTDistribution)
	writeSummary(&b, e.Prefix+"inter_token_latency_milliseconds", "Inter-token latency, in milliseconds", agg.InterTokenDistribution)
	writeSummary(&b, e.Prefix+"request_duration_milliseconds", "Total request duration, in milliseconds", agg.TotalLatencyDistribution)

	return b.String(), nil
}

// ExportRequests renders one gauge per request: request_info, with the
// request id truncated to 8 characters to bound label cardinality.
func (e PrometheusExporter) ExportRequests(requests []types.RequestMetrics) (string, error) {
	var b strings.Builder
	name := e.Prefix + "request_info"

	b.WriteString(fmt.Sprintf("# HELP %s Per-request metadata, one gauge sample per request\n", name))
	b.WriteString(fmt.Sprintf("# TYPE %s gauge\n", name))
	for _, m := range requests {
		status := "success"
		if !m.Success {
			status = "failure"
		}
		b.WriteString(fmt.Sprintf(
			"%s{request_id=%q,provider=%q,model=%q,status=%q} 1\n",
			name, m.RequestID.Short(), m.Provider.String(), m.Model, status,
		))
	}
	return b.String(), nil
}

func writeCounter(b *strings.Builder, name, help string, value float64) {
	b.WriteString(fmt.Sprintf("# HELP %s %s\n", name, help))
	b.WriteString(fmt.Sprintf("# TYPE %s counter\n", name))
	b.WriteString(fmt.Sprintf("%s %s\n", name, formatFloat(value)))
}

func writeSummary(b *strings.Builder, name, help string, d types.LatencyDistribution) {
	b.WriteString(fmt.Sprintf("# HELP %s %s\n", name, help))
	b.WriteString(fmt.Sprintf("# TYPE %s summary\n", name))

	for _, q := range quantiles {
		v := durationMs(quantileValue(d, q))
		b.WriteString(fmt.Sprintf("%s{quantile=%q} %s\n", name, formatFloat(q), formatFloat(v)))
	}

	sum := durationMs(d.Mean) * float64(d.SampleCount)
	b.WriteString(fmt.Sprintf("%s_sum %s\n", name, formatFloat(sum)))
	b.WriteString(fmt.Sprintf("%s_count %d\n", name, d.SampleCount))
}

func quantileValue(d types.LatencyDistribution, q float64) time.Duration {
	switch q {
	case 0.5:
		return d.P50
	case 0.9:
		return d.P90
	case 0.95:
		return d.P95
	case 0.99:
		return d.P99
	case 0.999:
		return d.P999
	default:
		return 0
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
