package upstream

import (
	"testing"
	"time"
)

func TestDecodeJSON_SingleObject(t *testing.T) {
	data := []byte(`{
		"llm_provider": "openai",
		"llm_model": "gpt-4o",
		"ttft_ms": 120.5,
		"latency_ms": 980.0,
		"prompt_tokens": 50,
		"completion_tokens": 100,
		"passed": true
	}`)

	records, err := decodeJSON(data)
	if err != nil {
		t.Fatalf("decodeJSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	m := records[0]
	if m.Provider.String() != "openai" {
		t.Errorf("provider = %s, want openai", m.Provider)
	}
	if m.Model != "gpt-4o" {
		t.Errorf("model = %s, want gpt-4o", m.Model)
	}
	if m.TTFT != 120500*time.Microsecond {
		t.Errorf("ttft = %v, want 120.5ms", m.TTFT)
	}
	if m.InputTokens != 50 || m.OutputTokens != 100 {
		t.Errorf("tokens = %d/%d, want 50/100", m.InputTokens, m.OutputTokens)
	}
	if !m.Success {
		t.Error("success should be true")
	}
}

func TestDecodeJSON_Array(t *testing.T) {
	data := []byte(`[
		{"provider": "openai", "model": "gpt-4o", "total_time_ms": 500},
		{"provider": "anthropic", "model": "claude-3-haiku-20240307", "total_time_ms": 700}
	]`)

	records, err := decodeJSON(data)
	if err != nil {
		t.Fatalf("decodeJSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].TotalLatency != 500*time.Millisecond {
		t.Errorf("first total_latency = %v, want 500ms", records[0].TotalLatency)
	}
}

func TestDecodeJSONL_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"provider": "openai", "model": "gpt-4o", "latency_ms": 100}
not json at all
{"provider": "anthropic", "model": "claude-3-haiku-20240307", "latency_ms": 200}
`)

	records, err := decodeJSONL(data)
	if err != nil {
		t.Fatalf("decodeJSONL: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (malformed line should be skipped)", len(records))
	}
}

func TestDecodeCSV_HeaderDriven(t *testing.T) {
	data := []byte("llm_provider,llm_model,ttft_ms,latency_ms,prompt_tokens,completion_tokens\n" +
		"openai,gpt-4o,100,900,10,20\n" +
		"anthropic,claude-3-haiku-20240307,150,1100,15,30\n")

	records, err := decodeCSV(data)
	if err != nil {
		t.Fatalf("decodeCSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Provider.String() != "openai" {
		t.Errorf("provider = %s, want openai", records[0].Provider)
	}
	if records[1].InputTokens != 15 {
		t.Errorf("input tokens = %d, want 15", records[1].InputTokens)
	}
}

func TestToMetrics_DefaultsTokensPerSecondWhenAbsent(t *testing.T) {
	f := fields{
		"provider":         "openai",
		"model":            "gpt-4o",
		"total_latency_ms": "1000",
		"output_tokens":    "50",
	}
	m, err := toMetrics(f)
	if err != nil {
		t.Fatalf("toMetrics: %v", err)
	}
	if m.TokensPerSecond != 50.0 {
		t.Errorf("tokens_per_second = %f, want 50.0 (50 tokens / 1s)", m.TokensPerSecond)
	}
}

func TestToMetrics_SuccessDefaultsTrue(t *testing.T) {
	m, err := toMetrics(fields{"provider": "openai", "model": "gpt-4o"})
	if err != nil {
		t.Fatalf("toMetrics: %v", err)
	}
	if !m.Success {
		t.Error("success should default to true when the field is absent")
	}
}

func TestToMetrics_UnknownProviderFallsBackToGeneric(t *testing.T) {
	m, err := toMetrics(fields{"provider": "some-future-vendor", "model": "x"})
	if err != nil {
		t.Fatalf("toMetrics: %v", err)
	}
	if m.Provider.String() != "generic" {
		t.Errorf("provider = %s, want generic fallback", m.Provider)
	}
}

func TestToMetrics_InterTokenLatenciesSemicolonList(t *testing.T) {
	m, err := toMetrics(fields{
		"provider":                 "openai",
		"model":                   "gpt-4o",
		"inter_token_latencies_ms": "10;20;30",
	})
	if err != nil {
		t.Fatalf("toMetrics: %v", err)
	}
	if len(m.InterTokenLatencies) != 3 {
		t.Fatalf("got %d inter-token latencies, want 3", len(m.InterTokenLatencies))
	}
	if m.InterTokenLatencies[1] != 20*time.Millisecond {
		t.Errorf("second latency = %v, want 20ms", m.InterTokenLatencies[1])
	}
}

func TestReadFile_UnrecognizedExtension(t *testing.T) {
	if _, err := NewReader("report.txt", []byte("x")); err == nil {
		t.Error("expected an error for an unrecognized extension")
	}
}
