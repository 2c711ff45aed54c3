package upstream

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// fields is a case-insensitive bag of raw values keyed by the column or
// JSON property name it was read under, already flattened to strings so
// the JSON and CSV decoders can share one coercion path. Keys are
// always lower-cased on the way in (see set), so lookups never need to
// re-fold case.
type fields map[string]string

// set stores v under name's lower-cased form, giving every reader the
// same case-insensitive key space the alias tables (all lowercase)
// expect.
func (f fields) set(name, v string) {
	f[strings.ToLower(name)] = v
}

func (f fields) first(names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := f[n]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Field aliases, verbatim from the upstream field-aliasing table: the
// canonical name always comes first so a record carrying both the
// canonical and aliased column prefers the canonical one.
var (
	aliasIDs             = []string{"test_case_id", "test_id", "id"}
	aliasProvider        = []string{"provider", "llm_provider"}
	aliasModel           = []string{"model", "llm_model"}
	aliasTTFTMs          = []string{"ttft_ms", "ttft", "time_to_first_token_ms"}
	aliasTotalLatencyMs  = []string{"total_latency_ms", "latency_ms", "total_time_ms"}
	aliasInputTokens     = []string{"input_tokens", "prompt_tokens"}
	aliasOutputTokens    = []string{"output_tokens", "completion_tokens"}
	aliasInterTokenMs    = []string{"inter_token_latencies_ms", "itl_ms", "inter_token_latencies"}
	aliasSuccess         = []string{"success", "passed"}
	aliasSessionID       = []string{"session_id"}
	aliasTimestamp       = []string{"timestamp"}
	aliasThinkingTokens  = []string{"thinking_tokens"}
	aliasTokensPerSecond = []string{"tokens_per_second"}
	aliasCostUSD         = []string{"cost_usd"}
	aliasError           = []string{"error", "error_message"}
)

// toMetrics applies the field-aliasing rules and default-value policy
// from the upstream contract to build one RequestMetrics. Missing
// optional fields default per that contract: success=true, timestamp=
// now, token counts=0, tokens_per_second derived when absent.
func toMetrics(f fields) (types.RequestMetrics, error) {
	m := types.RequestMetrics{
		RequestID: requestIDFrom(f),
		SessionID: sessionIDFrom(f),
		Model:     valueOr(f, aliasModel, ""),
		Success:   true,
	}

	provider, err := types.ParseProvider(strings.ToLower(valueOr(f, aliasProvider, "generic")))
	if err != nil {
		provider = types.ProviderGeneric
	}
	m.Provider = provider

	if raw, ok := f.first(aliasTimestamp...); ok {
		ts, err := parseTimestamp(raw)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = ts
	} else {
		m.Timestamp = time.Now().UTC()
	}

	if raw, ok := f.first(aliasTTFTMs...); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse ttft: %w", err)
		}
		m.TTFT = msToDuration(v)
	}

	if raw, ok := f.first(aliasTotalLatencyMs...); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse total_latency: %w", err)
		}
		m.TotalLatency = msToDuration(v)
	}

	if raw, ok := f.first(aliasInterTokenMs...); ok {
		itl, err := parseDurationList(raw)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse inter_token_latencies: %w", err)
		}
		m.InterTokenLatencies = itl
	}

	m.InputTokens = uintOr(f, aliasInputTokens, 0)
	m.OutputTokens = uintOr(f, aliasOutputTokens, 0)

	if raw, ok := f.first(aliasThinkingTokens...); ok {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse thinking_tokens: %w", err)
		}
		m.ThinkingTokens = &v
	}

	if raw, ok := f.first(aliasTokensPerSecond...); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse tokens_per_second: %w", err)
		}
		m.TokensPerSecond = v
	} else if m.OutputTokens > 0 && m.TotalLatency > 0 {
		m.TokensPerSecond = float64(m.OutputTokens) / m.TotalLatency.Seconds()
	}

	if raw, ok := f.first(aliasCostUSD...); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse cost_usd: %w", err)
		}
		m.CostUSD = &v
	}

	if raw, ok := f.first(aliasSuccess...); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("parse success: %w", err)
		}
		m.Success = v
	}

	if raw, ok := f.first(aliasError...); ok {
		m.Error = &raw
	}

	return m, nil
}

// requestIDFrom tries to read a stable RequestId out of the record's id
// columns, falling back to a freshly generated one when the upstream
// value is not a UUID (most test benches use their own short id scheme,
// not RFC 4122 identifiers).
func requestIDFrom(f fields) types.RequestId {
	if raw, ok := f.first(aliasIDs...); ok {
		if id, err := types.ParseRequestId(raw); err == nil {
			return id
		}
	}
	return types.NewRequestId()
}

func sessionIDFrom(f fields) types.SessionId {
	if raw, ok := f.first(aliasSessionID...); ok {
		if id, err := types.ParseSessionId(raw); err == nil {
			return id
		}
	}
	return types.NewSessionId()
}

func valueOr(f fields, names []string, fallback string) string {
	if v, ok := f.first(names...); ok {
		return v
	}
	return fallback
}

func uintOr(f fields, names []string, fallback uint64) uint64 {
	raw, ok := f.first(names...)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// parseDurationList splits a semicolon- or comma-delimited list of
// millisecond values, matching the delimiter this repo's own CSV
// exporter writes.
func parseDurationList(raw string) ([]time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	sep := ";"
	if strings.Contains(raw, ",") && !strings.Contains(raw, ";") {
		sep = ","
	}
	parts := strings.Split(raw, sep)
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, msToDuration(v))
	}
	return out, nil
}

// parseTimestamp accepts RFC3339 and RFC3339Nano, the two forms this
// repo's own exporters produce.
func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
