package exporters

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// CSVExporter renders an AggregatedMetrics' three latency distributions
// as one row each, or a slice of RequestMetrics as one row per request.
// RFC 4180 quoting for embedded commas/quotes/newlines is handled by the
// standard library's encoding/csv writer.
type CSVExporter struct{}

// NewCSVExporter returns a ready-to-use CSV exporter.
func NewCSVExporter() CSVExporter {
	return CSVExporter{}
}

var distributionHeader = []string{
	"metric", "min_ms", "mean_ms", "p50_ms", "p90_ms", "p95_ms", "p99_ms", "p999_ms", "max_ms", "std_dev_ms",
}

// Export renders agg's three LatencyDistributions (ttft, inter_token,
// total_latency) as a header row plus one row each.
func (CSVExporter) Export(agg types.AggregatedMetrics) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(distributionHeader); err != nil {
		return "", err
	}
	rows := []struct {
		name string
		d    types.LatencyDistribution
	}{
		{"ttft", agg.TTFTDistribution},
		{"inter_token", agg.InterTokenDistribution},
		{"total_latency", agg.TotalLatencyDistribution},
	}
	for _, r := range rows {
		if err := w.Write(distributionRow(r.name, r.d)); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func distributionRow(name string, d types.LatencyDistribution) []string {
	ms := func(v time.Duration) string {
		return strconv.FormatFloat(float64(v)/float64(time.Millisecond), 'f', -1, 64)
	}
	return []string{
		name,
		ms(d.Min), ms(d.Mean), ms(d.P50), ms(d.P90), ms(d.P95), ms(d.P99), ms(d.P999), ms(d.Max), ms(d.StdDev),
	}
}

var requestHeader = []string{
	"request_id", "session_id", "provider", "model", "timestamp",
	"ttft_ms", "total_latency_ms", "inter_token_latencies_ms",
	"input_tokens", "output_tokens", "thinking_tokens",
	"tokens_per_second", "cost_usd", "success", "error",
}

// ExportRequests renders one row per RequestMetrics, named per the
// field list above.
func (CSVExporter) ExportRequests(requests []types.RequestMetrics) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(requestHeader); err != nil {
		return "", err
	}
	for _, m := range requests {
		if err := w.Write(requestRow(m)); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func requestRow(m types.RequestMetrics) []string {
	msFloat := func(v time.Duration) string {
		return strconv.FormatFloat(float64(v)/float64(time.Millisecond), 'f', -1, 64)
	}
	itl := make([]string, len(m.InterTokenLatencies))
	for i, d := range m.InterTokenLatencies {
		itl[i] = msFloat(d)
	}
	thinking := ""
	if m.ThinkingTokens != nil {
		thinking = strconv.FormatUint(*m.ThinkingTokens, 10)
	}
	cost := ""
	if m.CostUSD != nil {
		cost = strconv.FormatFloat(*m.CostUSD, 'f', -1, 64)
	}
	errStr := ""
	if m.Error != nil {
		errStr = *m.Error
	}
	return []string{
		m.RequestID.String(),
		m.SessionID.String(),
		m.Provider.String(),
		m.Model,
		m.Timestamp.Format(time.RFC3339Nano),
		msFloat(m.TTFT),
		msFloat(m.TotalLatency),
		strings.Join(itl, ";"),
		strconv.FormatUint(m.InputTokens, 10),
		strconv.FormatUint(m.OutputTokens, 10),
		thinking,
		strconv.FormatFloat(m.TokensPerSecond, 'f', -1, 64),
		cost,
		strconv.FormatBool(m.Success),
		errStr,
	}
}

// ParseRequestsCSV reads back the format ExportRequests produces,
// recovering an equivalent (up to floating-point normalization) slice
// of RequestMetrics. It is the inverse operation spec.md §8's CSV
// round-trip law exercises.
func ParseRequestsCSV(content string) ([]types.RequestMetrics, error) {
	r := csv.NewReader(strings.NewReader(content))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	out := make([]types.RequestMetrics, 0, len(records)-1)
	for _, row := range records[1:] {
		m, err := parseRequestRow(row, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func parseRequestRow(row []string, idx map[string]int) (types.RequestMetrics, error) {
	get := func(key string) string {
		if i, ok := idx[key]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	requestID, err := types.ParseRequestId(get("request_id"))
	if err != nil {
		return types.RequestMetrics{}, fmt.Errorf("parse request_id: %w", err)
	}
	sessionID, err := types.ParseSessionId(get("session_id"))
	if err != nil {
		return types.RequestMetrics{}, fmt.Errorf("parse session_id: %w", err)
	}
	provider, err := types.ParseProvider(get("provider"))
	if err != nil {
		return types.RequestMetrics{}, fmt.Errorf("parse provider: %w", err)
	}
	timestamp, err := time.Parse(time.RFC3339Nano, get("timestamp"))
	if err != nil {
		return types.RequestMetrics{}, fmt.Errorf("parse timestamp: %w", err)
	}

	ttftMs, err := strconv.ParseFloat(get("ttft_ms"), 64)
	if err != nil {
		return types.RequestMetrics{}, fmt.Errorf("parse ttft_ms: %w", err)
	}
	totalMs, err := strconv.ParseFloat(get("total_latency_ms"), 64)
	if err != nil {
		return types.RequestMetrics{}, fmt.Errorf("parse total_latency_ms: %w", err)
	}

	var itl []time.Duration
	if raw := get("inter_token_latencies_ms"); raw != "" {
		for _, part := range strings.Split(raw, ";") {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return types.RequestMetrics{}, fmt.Errorf("parse inter_token_latencies_ms: %w", err)
			}
			itl = append(itl, time.Duration(v*float64(time.Millisecond)))
		}
	}

	inputTokens, _ := strconv.ParseUint(get("input_tokens"), 10, 64)
	outputTokens, _ := strconv.ParseUint(get("output_tokens"), 10, 64)

	var thinkingTokens *uint64
	if raw := get("thinking_tokens"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse thinking_tokens: %w", err)
		}
		thinkingTokens = &v
	}

	tokensPerSecond, _ := strconv.ParseFloat(get("tokens_per_second"), 64)

	var costUSD *float64
	if raw := get("cost_usd"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse cost_usd: %w", err)
		}
		costUSD = &v
	}

	success, _ := strconv.ParseBool(get("success"))

	var errPtr *string
	if raw := get("error"); raw != "" {
		errPtr = &raw
	}

	return types.RequestMetrics{
		RequestID:           requestID,
		SessionID:           sessionID,
		Provider:            provider,
		Model:               get("model"),
		Timestamp:           timestamp,
		TTFT:                time.Duration(ttftMs * float64(time.Millisecond)),
		TotalLatency:        time.Duration(totalMs * float64(time.Millisecond)),
		InterTokenLatencies: itl,
		InputTokens:         inputTokens,
		OutputTokens:        outputTokens,
		ThinkingTokens:      thinkingTokens,
		TokensPerSecond:     tokensPerSecond,
		CostUSD:             costUSD,
		Success:             success,
		Error:               errPtr,
	}, nil
}
