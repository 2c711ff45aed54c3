package aggregator

import (
	"testing"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

func TestCompare_TTFTAndThroughputImprovement(t *testing.T) {
	baseline := types.AggregatedMetrics{
		TTFTDistribution: types.LatencyDistribution{Mean: 100 * time.Millisecond, SampleCount: 1},
		Throughput:       types.ThroughputStats{MeanTokensPerSecond: 50},
	}
	comparison := types.AggregatedMetrics{
		TTFTDistribution: types.LatencyDistribution{Mean: 80 * time.Millisecond, SampleCount: 1},
		Throughput:       types.ThroughputStats{MeanTokensPerSecond: 60},
	}

	cmp := Compare(baseline, comparison)

	if cmp.TTFTChange.MeanChangePct <= -25 || cmp.TTFTChange.MeanChangePct >= -15 {
		t.Errorf("ttft mean change = %.2f%%, want in (-25,-15)", cmp.TTFTChange.MeanChangePct)
	}
	if cmp.ThroughputChangePct <= 15 || cmp.ThroughputChangePct >= 25 {
		t.Errorf("throughput change = %.2f%%, want in (15,25)", cmp.ThroughputChangePct)
	}
}

func TestCompare_ZeroBaselineYieldsZeroChange(t *testing.T) {
	baseline := types.AggregatedMetrics{}
	comparison := types.AggregatedMetrics{
		TTFTDistribution: types.LatencyDistribution{Mean: 80 * time.Millisecond},
		Throughput:       types.ThroughputStats{MeanTokensPerSecond: 60},
	}

	cmp := Compare(baseline, comparison)

	if cmp.TTFTChange.MeanChangePct != 0 {
		t.Errorf("expected 0%% change against zero baseline, got %.2f%%", cmp.TTFTChange.MeanChangePct)
	}
	if cmp.ThroughputChangePct != 0 {
		t.Errorf("expected 0%% change against zero baseline, got %.2f%%", cmp.ThroughputChangePct)
	}
}

func TestCompare_CostChangeAbsentWithoutBothSides(t *testing.T) {
	cost := 1.0
	baseline := types.AggregatedMetrics{TotalCostUSD: &cost}
	comparison := types.AggregatedMetrics{}

	cmp := Compare(baseline, comparison)
	if cmp.CostChangePct != nil {
		t.Error("expected nil cost change when only one side has cost")
	}
}

func TestCompare_CostChangePresentWithBothSides(t *testing.T) {
	baselineCost := 2.0
	comparisonCost := 1.0
	baseline := types.AggregatedMetrics{TotalCostUSD: &baselineCost}
	comparison := types.AggregatedMetrics{TotalCostUSD: &comparisonCost}

	cmp := Compare(baseline, comparison)
	if cmp.CostChangePct == nil {
		t.Fatal("expected non-nil cost change")
	}
	if *cmp.CostChangePct != -50 {
		t.Errorf("cost change = %.2f%%, want -50", *cmp.CostChangePct)
	}
}
