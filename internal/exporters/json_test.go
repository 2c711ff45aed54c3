package exporters

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

func sampleAggregated() types.AggregatedMetrics {
	cost := 0.5
	thinking := uint64(12)
	return types.AggregatedMetrics{
		SessionID:          types.NewSessionId(),
		StartTime:          time.Now().UTC().Add(-time.Minute),
		EndTime:            time.Now().UTC(),
		TotalRequests:      10,
		SuccessfulRequests: 9,
		FailedRequests:     1,
		TTFTDistribution: types.LatencyDistribution{
			Min: time.Millisecond, Max: 100 * time.Millisecond, Mean: 50 * time.Millisecond,
			P50: 45 * time.Millisecond, P90: 80 * time.Millisecond, P95: 90 * time.Millisecond,
			P99: 98 * time.Millisecond, P999: 99 * time.Millisecond, SampleCount: 9,
		},
		Throughput:          types.ThroughputStats{MeanTokensPerSecond: 42.5},
		TotalInputTokens:    100,
		TotalOutputTokens:   200,
		TotalThinkingTokens: &thinking,
		TotalCostUSD:        &cost,
		ProviderBreakdown:   []types.ProviderCount{{Provider: types.ProviderOpenAI, Count: 9}, {Provider: types.ProviderAnthropic, Count: 1}},
		ModelBreakdown:      []types.ModelCount{{Model: "gpt-4o", Count: 9}, {Model: "claude-3-haiku-20240307", Count: 1}},
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	agg := sampleAggregated()
	exporter := NewJSONExporter(true)

	out, err := exporter.Export(agg)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var decoded types.AggregatedMetrics
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.TotalRequests != agg.TotalRequests {
		t.Errorf("total requests = %d, want %d", decoded.TotalRequests, agg.TotalRequests)
	}
	if decoded.SessionID.String() != agg.SessionID.String() {
		t.Errorf("session id mismatch after round trip")
	}
	if *decoded.TotalCostUSD != *agg.TotalCostUSD {
		t.Errorf("cost mismatch after round trip")
	}
}

func TestJSONExporter_CompactIsOneLine(t *testing.T) {
	exporter := NewJSONExporter(false)
	out, err := exporter.Export(sampleAggregated())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, c := range out {
		if c == '\n' {
			t.Fatal("compact JSON should not contain newlines")
		}
	}
}

func TestJSONExporter_DeterministicOutput(t *testing.T) {
	agg := sampleAggregated()
	exporter := NewJSONExporter(true)

	first, err := exporter.Export(agg)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	second, err := exporter.Export(agg)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if first != second {
		t.Error("exporting the same AggregatedMetrics twice produced different output")
	}
}
