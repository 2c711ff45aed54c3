package exporters

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/colorstring"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// ConsoleExporter renders a tabular, optionally color-coded report:
// header, summary, a latency matrix (one row per kind x
// {min,mean,p50,p95,p99,max}), a throughput matrix, and provider/model
// breakdown tables.
type ConsoleExporter struct {
	Color bool
}

// NewConsoleExporter returns a console exporter with color output
// toggled as requested. Color escapes are only ever emitted through
// colorstring, matching how this codebase's other terminal output is
// colorized.
func NewConsoleExporter(color bool) ConsoleExporter {
	return ConsoleExporter{Color: color}
}

// Export renders the full report.
func (e ConsoleExporter) Export(agg types.AggregatedMetrics) (string, error) {
	var b strings.Builder

	e.writeHeader(&b, agg)
	e.writeSummary(&b, agg)
	e.writeLatencyMatrix(&b, agg)
	e.writeThroughputMatrix(&b, agg)
	e.writeBreakdown(&b, "Provider", providerRows(agg.ProviderBreakdown))
	e.writeBreakdown(&b, "Model", modelRows(agg.ModelBreakdown))

	return b.String(), nil
}

// ExportRequests renders one line per request: id, provider, model,
// status, and total latency.
func (e ConsoleExporter) ExportRequests(requests []types.RequestMetrics) (string, error) {
	var b strings.Builder
	e.writeLine(&b, "[bold]request_id  provider      model                      status   total_latency[reset]")
	for _, m := range requests {
		status := "[green]ok[reset]"
		if !m.Success {
			status = "[red]fail[reset]"
		}
		e.writeLine(&b, fmt.Sprintf(
			"%-11s %-13s %-26s %-8s %s",
			m.RequestID.Short(), m.Provider.String(), m.Model, e.colorize(status), m.TotalLatency,
		))
	}
	return b.String(), nil
}

func (e ConsoleExporter) writeHeader(b *strings.Builder, agg types.AggregatedMetrics) {
	e.writeLine(b, "[bold]=== llm-latency-lens session report ===[reset]")
	fmt.Fprintf(b, "Session:    %s\n", agg.SessionID.String())
	fmt.Fprintf(b, "Time range: %s -> %s (%s)\n",
		agg.StartTime.Format(time.RFC3339), agg.EndTime.Format(time.RFC3339), agg.Duration())
	b.WriteString("\n")
}

func (e ConsoleExporter) writeSummary(b *strings.Builder, agg types.AggregatedMetrics) {
	e.writeLine(b, "[bold]-- Summary --[reset]")
	fmt.Fprintf(b, "Requests:    %d total, %d ok, %d failed (%.1f%% success)\n",
		agg.TotalRequests, agg.SuccessfulRequests, agg.FailedRequests, agg.SuccessRate())
	fmt.Fprintf(b, "Tokens:      %d input, %d output", agg.TotalInputTokens, agg.TotalOutputTokens)
	if agg.TotalThinkingTokens != nil {
		fmt.Fprintf(b, ", %d thinking", *agg.TotalThinkingTokens)
	}
	b.WriteString("\n")
	if agg.TotalCostUSD != nil {
		fmt.Fprintf(b, "Cost:        $%.4f\n", *agg.TotalCostUSD)
	}
	b.WriteString("\n")
}

func (e ConsoleExporter) writeLatencyMatrix(b *strings.Builder, agg types.AggregatedMetrics) {
	e.writeLine(b, "[bold]-- Latency (ms) --[reset]")
	fmt.Fprintf(b, "%-14s %10s %10s %10s %10s %10s %10s\n", "metric", "min", "mean", "p50", "p95", "p99", "max")
	rows := []struct {
		name string
		d    types.LatencyDistribution
	}{
		{"ttft", agg.TTFTDistribution},
		{"inter_token", agg.InterTokenDistribution},
		{"total_latency", agg.TotalLatencyDistribution},
	}
	for _, r := range rows {
		fmt.Fprintf(b, "%-14s %10.2f %10.2f %10.2f %10.2f %10.2f %10.2f\n",
			r.name, durationMs(r.d.Min), durationMs(r.d.Mean), durationMs(r.d.P50),
			durationMs(r.d.P95), durationMs(r.d.P99), durationMs(r.d.Max))
	}
	b.WriteString("\n")
}

func (e ConsoleExporter) writeThroughputMatrix(b *strings.Builder, agg types.AggregatedMetrics) {
	e.writeLine(b, "[bold]-- Throughput (tok/s) --[reset]")
	t := agg.Throughput
	fmt.Fprintf(b, "mean=%.2f min=%.2f max=%.2f p50=%.2f p95=%.2f p99=%.2f\n",
		t.MeanTokensPerSecond, t.MinTokensPerSecond, t.MaxTokensPerSecond,
		t.P50TokensPerSecond, t.P95TokensPerSecond, t.P99TokensPerSecond)
	b.WriteString("\n")
}

type breakdownRow struct {
	name  string
	count uint64
}

func providerRows(pc []types.ProviderCount) []breakdownRow {
	rows := make([]breakdownRow, len(pc))
	for i, p := range pc {
		rows[i] = breakdownRow{name: p.Provider.String(), count: p.Count}
	}
	return rows
}

func modelRows(mc []types.ModelCount) []breakdownRow {
	rows := make([]breakdownRow, len(mc))
	for i, m := range mc {
		rows[i] = breakdownRow{name: m.Model, count: m.Count}
	}
	return rows
}

func (e ConsoleExporter) writeBreakdown(b *strings.Builder, title string, rows []breakdownRow) {
	if len(rows) == 0 {
		return
	}
	e.writeLine(b, fmt.Sprintf("[bold]-- %s breakdown --[reset]", title))
	for _, r := range rows {
		fmt.Fprintf(b, "%-30s %d\n", r.name, r.count)
	}
	b.WriteString("\n")
}

func (e ConsoleExporter) writeLine(b *strings.Builder, line string) {
	b.WriteString(e.colorize(line))
	b.WriteString("\n")
}

// colorize expands colorstring markup when Color is enabled, and strips
// it to plain text otherwise.
func (e ConsoleExporter) colorize(s string) string {
	if e.Color {
		return colorstring.Color(s)
	}
	return stripColorTags(s)
}

func stripColorTags(s string) string {
	for _, tag := range []string{"[bold]", "[reset]", "[green]", "[red]"} {
		s = strings.ReplaceAll(s, tag, "")
	}
	return s
}
