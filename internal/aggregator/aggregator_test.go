package aggregator

import (
	"testing"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/metrics"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

func successMetric(provider types.Provider, model string, ttft time.Duration) types.RequestMetrics {
	return types.RequestMetrics{
		RequestID:    types.NewRequestId(),
		SessionID:    types.NewSessionId(),
		Provider:     provider,
		Model:        model,
		Timestamp:    time.Now().UTC(),
		TTFT:         ttft,
		TotalLatency: ttft + 10*time.Millisecond,
		Success:      true,
		InputTokens:  10,
		OutputTokens: 20,
	}
}

func TestAggregate_EmptyCollectorReturnsNoMetrics(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	_, err := Aggregate(c.Snapshot())
	if err != ErrNoMetrics {
		t.Fatalf("expected ErrNoMetrics, got %v", err)
	}
}

func TestAggregate_PercentilesWithinTolerance(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	for i := 1; i <= 100; i++ {
		m := successMetric(types.ProviderOpenAI, "gpt-4o", time.Duration(i)*time.Millisecond)
		c.Record(m)
	}

	agg, err := Aggregate(c.Snapshot())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	p50 := agg.TTFTDistribution.P50.Milliseconds()
	if p50 < 49 || p50 > 51 {
		t.Errorf("p50 = %dms, want within [49,51]", p50)
	}
	p95 := agg.TTFTDistribution.P95.Milliseconds()
	if p95 < 94 || p95 > 96 {
		t.Errorf("p95 = %dms, want within [94,96]", p95)
	}
	p99 := agg.TTFTDistribution.P99.Milliseconds()
	if p99 < 98 || p99 > 100 {
		t.Errorf("p99 = %dms, want within [98,100]", p99)
	}
	if agg.TTFTDistribution.Max.Milliseconds() != 100 {
		t.Errorf("max = %dms, want 100", agg.TTFTDistribution.Max.Milliseconds())
	}
	mean := agg.TTFTDistribution.Mean.Seconds() * 1000
	if mean < 49.5 || mean > 51.5 {
		t.Errorf("mean = %.2fms, want ~50.5ms", mean)
	}
}

func TestAggregate_AllFailuresProduceEmptyDistributions(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	for i := 0; i < 5; i++ {
		errMsg := "boom"
		c.Record(types.RequestMetrics{
			RequestID: types.NewRequestId(),
			Provider:  types.ProviderOpenAI,
			Model:     "gpt-4o",
			Timestamp: time.Now().UTC(),
			Success:   false,
			Error:     &errMsg,
		})
	}

	agg, err := Aggregate(c.Snapshot())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.SuccessfulRequests != 0 {
		t.Errorf("successful = %d, want 0", agg.SuccessfulRequests)
	}
	if !agg.TTFTDistribution.IsEmpty() {
		t.Error("expected empty TTFT distribution")
	}
	if agg.SuccessRate() != 0 {
		t.Errorf("success rate = %v, want 0", agg.SuccessRate())
	}
}

func TestAggregate_SingleSampleDistributionCollapses(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	c.Record(successMetric(types.ProviderAnthropic, "claude-3-opus-20240229", 42*time.Millisecond))

	agg, err := Aggregate(c.Snapshot())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	d := agg.TTFTDistribution
	if d.Min != d.Max || d.Max != d.P50 || d.P50 != d.P99 {
		t.Errorf("single-sample distribution should collapse to one value, got %+v", d)
	}
	if d.StdDev != 0 {
		t.Errorf("std dev = %v, want 0", d.StdDev)
	}
}

func TestAggregate_ConcurrentIngestion(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				c.Record(successMetric(types.ProviderOpenAI, "gpt-4o-mini", time.Millisecond))
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if c.Len() != 100 {
		t.Fatalf("collector.Len() = %d, want 100", c.Len())
	}

	agg, err := Aggregate(c.Snapshot())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.TotalRequests != 100 {
		t.Errorf("total requests = %d, want 100", agg.TotalRequests)
	}
}

func TestAggregateByProvider_FiltersToSingleProvider(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	for i := 0; i < 5; i++ {
		c.Record(successMetric(types.ProviderOpenAI, "gpt-4o", 10*time.Millisecond))
	}
	for i := 0; i < 3; i++ {
		c.Record(successMetric(types.ProviderAnthropic, "claude-3-haiku-20240307", 50*time.Millisecond))
	}

	agg, err := AggregateByProvider(c.Snapshot(), types.ProviderOpenAI)
	if err != nil {
		t.Fatalf("aggregate by provider: %v", err)
	}
	if agg.TotalRequests != 5 {
		t.Errorf("total requests = %d, want 5", agg.TotalRequests)
	}
	if agg.TTFTDistribution.Max > 11*time.Millisecond {
		t.Errorf("ttft max = %v, want ~10ms", agg.TTFTDistribution.Max)
	}
}

func TestAggregateByModel_UnknownModelReturnsNoMetrics(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	c.Record(successMetric(types.ProviderOpenAI, "gpt-4o", time.Millisecond))

	_, err := AggregateByModel(c.Snapshot(), "nonexistent-model")
	if err != ErrNoMetrics {
		t.Fatalf("expected ErrNoMetrics, got %v", err)
	}
}

func TestAggregate_BreakdownSumsToTotalRequests(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	for i := 0; i < 4; i++ {
		c.Record(successMetric(types.ProviderOpenAI, "gpt-4o", time.Millisecond))
	}
	errMsg := "timeout"
	c.Record(types.RequestMetrics{
		RequestID: types.NewRequestId(),
		Provider:  types.ProviderAnthropic,
		Model:     "claude-3-haiku-20240307",
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error:     &errMsg,
	})

	agg, err := Aggregate(c.Snapshot())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	var providerSum uint64
	for _, pc := range agg.ProviderBreakdown {
		providerSum += pc.Count
	}
	if providerSum != agg.TotalRequests {
		t.Errorf("provider breakdown sum = %d, want %d", providerSum, agg.TotalRequests)
	}

	var modelSum uint64
	for _, mc := range agg.ModelBreakdown {
		modelSum += mc.Count
	}
	if modelSum != agg.TotalRequests {
		t.Errorf("model breakdown sum = %d, want %d", modelSum, agg.TotalRequests)
	}
}

func TestAggregate_IdempotentOnSameSnapshot(t *testing.T) {
	c := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	for i := 1; i <= 20; i++ {
		c.Record(successMetric(types.ProviderOpenAI, "gpt-4o", time.Duration(i)*time.Millisecond))
	}

	snap := c.Snapshot()
	first, err := Aggregate(snap)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	second, err := Aggregate(snap)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if first.TTFTDistribution != second.TTFTDistribution {
		t.Error("aggregating the same snapshot twice produced different distributions")
	}
	if first.TotalRequests != second.TotalRequests {
		t.Error("aggregating the same snapshot twice produced different totals")
	}
}
