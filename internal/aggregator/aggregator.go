// Package aggregator computes AggregatedMetrics and baseline comparisons
// from a metrics.StateSnapshot. Every function here is pure: given the
// same snapshot it always returns the same result, and nothing here
// mutates the snapshot or the collector it came from.
package aggregator

import (
	"errors"
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/metrics"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// ErrNoMetrics is returned by Aggregate when the snapshot holds no
// recorded requests at all.
var ErrNoMetrics = errors.New("aggregator: no metrics recorded")

const throughputScale = 1000.0

// Aggregate builds the full session-level roll-up from snapshot's
// global histograms and scalar counters.
func Aggregate(snapshot metrics.StateSnapshot) (types.AggregatedMetrics, error) {
	total := snapshot.SuccessfulRequests + snapshot.FailedRequests
	if total == 0 {
		return types.AggregatedMetrics{}, ErrNoMetrics
	}

	agg := types.AggregatedMetrics{
		SessionID:          snapshot.SessionID,
		TotalRequests:      total,
		SuccessfulRequests: snapshot.SuccessfulRequests,
		FailedRequests:     snapshot.FailedRequests,

		TTFTDistribution:         distributionFrom(snapshot.Global.TTFT),
		InterTokenDistribution:   distributionFrom(snapshot.Global.InterToken),
		TotalLatencyDistribution: distributionFrom(snapshot.Global.Total),
		Throughput:               throughputFrom(snapshot.Global.Throughput),

		TotalInputTokens:  snapshot.TotalInputTokens,
		TotalOutputTokens: snapshot.TotalOutputTokens,

		ProviderBreakdown: providerBreakdown(snapshot.ProviderCounts),
		ModelBreakdown:    modelBreakdown(snapshot.ModelCounts),
	}

	if snapshot.HasThinkingTokens {
		v := snapshot.TotalThinkingTokens
		agg.TotalThinkingTokens = &v
	}
	if snapshot.HasCost {
		v := snapshot.TotalCostUSD
		agg.TotalCostUSD = &v
	}

	agg.StartTime, agg.EndTime = timeRange(snapshot.Raw)

	return agg, nil
}

// AggregateByProvider restricts the snapshot's already-filtered
// per-provider histograms and raw sample list to a single provider, per
// spec.md §9's "pick one discipline" resolution: percentiles are read
// directly from the per-provider HistogramSet the collector maintained
// at record time, exactly like the unfiltered path, never recomputed
// from raw samples.
func AggregateByProvider(snapshot metrics.StateSnapshot, provider types.Provider) (types.AggregatedMetrics, error) {
	set, ok := snapshot.PerProvider[provider]
	if !ok {
		return types.AggregatedMetrics{}, ErrNoMetrics
	}
	filteredRaw := filterRaw(snapshot.Raw, func(m types.RequestMetrics) bool { return m.Provider == provider })
	return aggregateFiltered(snapshot, set, filteredRaw)
}

// AggregateByModel is AggregateByProvider's twin for a single model.
func AggregateByModel(snapshot metrics.StateSnapshot, model string) (types.AggregatedMetrics, error) {
	set, ok := snapshot.PerModel[model]
	if !ok {
		return types.AggregatedMetrics{}, ErrNoMetrics
	}
	filteredRaw := filterRaw(snapshot.Raw, func(m types.RequestMetrics) bool { return m.Model == model })
	return aggregateFiltered(snapshot, set, filteredRaw)
}

func aggregateFiltered(snapshot metrics.StateSnapshot, set *metrics.HistogramSet, raw []types.RequestMetrics) (types.AggregatedMetrics, error) {
	if len(raw) == 0 {
		return types.AggregatedMetrics{}, ErrNoMetrics
	}

	var successful, failed uint64
	var inputTokens, outputTokens, thinkingTokens uint64
	var cost float64
	var hasThinking, hasCost bool
	providerCounts := make(map[types.Provider]uint64)
	modelCounts := make(map[string]uint64)

	for _, m := range raw {
		if m.Success {
			successful++
			inputTokens += m.InputTokens
			outputTokens += m.OutputTokens
			if m.ThinkingTokens != nil {
				thinkingTokens += *m.ThinkingTokens
				hasThinking = true
			}
			if m.CostUSD != nil {
				cost += *m.CostUSD
				hasCost = true
			}
		} else {
			failed++
		}
		providerCounts[m.Provider]++
		modelCounts[m.Model]++
	}

	agg := types.AggregatedMetrics{
		SessionID:          snapshot.SessionID,
		TotalRequests:      successful + failed,
		SuccessfulRequests: successful,
		FailedRequests:     failed,

		TTFTDistribution:         distributionFrom(set.TTFT),
		InterTokenDistribution:   distributionFrom(set.InterToken),
		TotalLatencyDistribution: distributionFrom(set.Total),
		Throughput:               throughputFrom(set.Throughput),

		TotalInputTokens:  inputTokens,
		TotalOutputTokens: outputTokens,

		ProviderBreakdown: providerBreakdown(providerCounts),
		ModelBreakdown:    modelBreakdown(modelCounts),
	}

	if hasThinking {
		agg.TotalThinkingTokens = &thinkingTokens
	}
	if hasCost {
		agg.TotalCostUSD = &cost
	}

	agg.StartTime, agg.EndTime = timeRange(raw)

	return agg, nil
}

func filterRaw(raw []types.RequestMetrics, keep func(types.RequestMetrics) bool) []types.RequestMetrics {
	out := make([]types.RequestMetrics, 0, len(raw))
	for _, m := range raw {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func distributionFrom(h *hdrhistogram.Histogram) types.LatencyDistribution {
	if h.TotalCount() == 0 {
		return types.EmptyLatencyDistribution()
	}
	return types.LatencyDistribution{
		Min:         time.Duration(h.Min()),
		Max:         time.Duration(h.Max()),
		Mean:        time.Duration(h.Mean()),
		StdDev:      time.Duration(h.StdDev()),
		P50:         time.Duration(h.ValueAtQuantile(50)),
		P90:         time.Duration(h.ValueAtQuantile(90)),
		P95:         time.Duration(h.ValueAtQuantile(95)),
		P99:         time.Duration(h.ValueAtQuantile(99)),
		P999:        time.Duration(h.ValueAtQuantile(99.9)),
		SampleCount: uint64(h.TotalCount()),
	}
}

func throughputFrom(h *hdrhistogram.Histogram) types.ThroughputStats {
	if h.TotalCount() == 0 {
		return types.EmptyThroughputStats()
	}
	return types.ThroughputStats{
		MeanTokensPerSecond:   h.Mean() / throughputScale,
		MinTokensPerSecond:    float64(h.Min()) / throughputScale,
		MaxTokensPerSecond:    float64(h.Max()) / throughputScale,
		StdDevTokensPerSecond: h.StdDev() / throughputScale,
		P50TokensPerSecond:    float64(h.ValueAtQuantile(50)) / throughputScale,
		P95TokensPerSecond:    float64(h.ValueAtQuantile(95)) / throughputScale,
		P99TokensPerSecond:    float64(h.ValueAtQuantile(99)) / throughputScale,
	}
}

func providerBreakdown(counts map[types.Provider]uint64) []types.ProviderCount {
	out := make([]types.ProviderCount, 0, len(counts))
	for p, n := range counts {
		out = append(out, types.ProviderCount{Provider: p, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider.String() < out[j].Provider.String() })
	return out
}

func modelBreakdown(counts map[string]uint64) []types.ModelCount {
	out := make([]types.ModelCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, types.ModelCount{Model: m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

func timeRange(raw []types.RequestMetrics) (start, end time.Time) {
	for _, m := range raw {
		if m.Timestamp.IsZero() {
			continue
		}
		if start.IsZero() || m.Timestamp.Before(start) {
			start = m.Timestamp
		}
		if end.IsZero() || m.Timestamp.After(end) {
			end = m.Timestamp
		}
	}
	return start, end
}
