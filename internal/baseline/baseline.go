// Package baseline converts a stored HistoricalBaseline into the
// AggregatedMetrics shape the aggregator's Compare already knows how to
// read, and classifies the result as a regression or not.
package baseline

import (
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/aggregator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// PercentileBaseline is the stored mean/p50/p95/p99 for one latency
// dimension. Min/max/std-dev/p90/p99.9 are not part of a historical
// record, so they are left zero when converted to a LatencyDistribution;
// Compare only ever reads mean/p50/p95/p99.
type PercentileBaseline struct {
	MeanNs int64 `json:"mean_ns"`
	P50Ns  int64 `json:"p50_ns"`
	P95Ns  int64 `json:"p95_ns"`
	P99Ns  int64 `json:"p99_ns"`
}

func (p PercentileBaseline) toDistribution(sampleCount uint64) types.LatencyDistribution {
	return types.LatencyDistribution{
		Mean:        time.Duration(p.MeanNs),
		P50:         time.Duration(p.P50Ns),
		P95:         time.Duration(p.P95Ns),
		P99:         time.Duration(p.P99Ns),
		SampleCount: sampleCount,
	}
}

// ThroughputBaseline is the stored mean tokens-per-second for a
// historical run.
type ThroughputBaseline struct {
	MeanTokensPerSecond float64 `json:"mean_tokens_per_second"`
}

// CostBaseline is the stored total USD cost for a historical run, kept
// optional since not every baseline tracks spend.
type CostBaseline struct {
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// HistoricalBaseline is a stored reference distribution for one
// provider/model pair, recorded over a historical sampling period.
type HistoricalBaseline struct {
	Provider    types.Provider `json:"provider"`
	Model       string         `json:"model"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	SampleCount uint64         `json:"sample_count"`

	TTFT         PercentileBaseline `json:"ttft"`
	InterToken   PercentileBaseline `json:"inter_token"`
	TotalLatency PercentileBaseline `json:"total_latency"`

	Throughput ThroughputBaseline `json:"throughput"`
	Cost       *CostBaseline      `json:"cost,omitempty"`

	SuccessRate float64           `json:"success_rate"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// ToAggregatedMetrics builds the AggregatedMetrics shape Compare
// expects out of a stored baseline. The result carries no session id,
// token totals, or breakdowns: a historical baseline is a distribution
// summary, not a replayable session.
func (b HistoricalBaseline) ToAggregatedMetrics() types.AggregatedMetrics {
	successful := uint64(b.SuccessRate * float64(b.SampleCount))
	agg := types.AggregatedMetrics{
		StartTime:                b.PeriodStart,
		EndTime:                  b.PeriodEnd,
		TotalRequests:            b.SampleCount,
		SuccessfulRequests:       successful,
		FailedRequests:           b.SampleCount - successful,
		TTFTDistribution:         b.TTFT.toDistribution(b.SampleCount),
		InterTokenDistribution:   b.InterToken.toDistribution(b.SampleCount),
		TotalLatencyDistribution: b.TotalLatency.toDistribution(b.SampleCount),
		Throughput:               types.ThroughputStats{MeanTokensPerSecond: b.Throughput.MeanTokensPerSecond},
	}
	if b.Cost != nil {
		v := b.Cost.TotalCostUSD
		agg.TotalCostUSD = &v
	}
	return agg
}

// Thresholds for regression classification, per spec.md §4.8: TTFT p95
// regressing by more than 10%, or mean throughput dropping by more than
// 10%.
const (
	ttftP95RegressionPct    = 10.0
	throughputRegressionPct = -10.0
)

// RegressionResult reports whether a comparison run regressed against
// its baseline, and why.
type RegressionResult struct {
	IsRegression bool                        `json:"is_regression"`
	Reasons      []string                    `json:"reasons,omitempty"`
	Comparison   aggregator.MetricsComparison `json:"comparison"`
}

// Compare converts baseline to its AggregatedMetrics shape, runs it
// through the standard aggregator comparison against current, and
// classifies the result as a regression when TTFT p95 rose more than
// 10% or mean throughput fell more than 10%.
func Compare(baseline HistoricalBaseline, current types.AggregatedMetrics) RegressionResult {
	cmp := aggregator.Compare(baseline.ToAggregatedMetrics(), current)

	result := RegressionResult{Comparison: cmp}
	if cmp.TTFTChange.P95ChangePct > ttftP95RegressionPct {
		result.IsRegression = true
		result.Reasons = append(result.Reasons, "ttft p95 regressed by more than 10%")
	}
	if cmp.ThroughputChangePct < throughputRegressionPct {
		result.IsRegression = true
		result.Reasons = append(result.Reasons, "mean throughput dropped by more than 10%")
	}
	return result
}
