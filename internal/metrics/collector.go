package metrics

import (
	"sync"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// Config controls the shape of histograms a Collector allocates and
// whether per-provider/per-model breakdowns are tracked at all.
type Config struct {
	MaxTrackableValueNs int64
	SignificantDigits   int
	PerProviderEnabled  bool
	PerModelEnabled     bool
}

// DefaultConfig matches spec.md §4.5's defaults: a 60s ceiling, 3
// significant digits, and both breakdowns enabled.
func DefaultConfig() Config {
	return Config{
		MaxTrackableValueNs: DefaultMaxTrackableValueNs,
		SignificantDigits:   DefaultSignificantDigits,
		PerProviderEnabled:  true,
		PerModelEnabled:     true,
	}
}

func (c Config) normalized() Config {
	if c.MaxTrackableValueNs <= 0 {
		c.MaxTrackableValueNs = DefaultMaxTrackableValueNs
	}
	if c.SignificantDigits < 1 || c.SignificantDigits > 5 {
		c.SignificantDigits = DefaultSignificantDigits
	}
	return c
}

// Collector is the single exclusive-lock container every in-flight
// request's outcome funnels through. It implements
// orchestrator.Recorder.
type Collector struct {
	mu sync.Mutex

	sessionID types.SessionId
	cfg       Config

	global      *HistogramSet
	perProvider map[types.Provider]*HistogramSet
	perModel    map[string]*HistogramSet

	raw []types.RequestMetrics

	successfulRequests uint64
	failedRequests      uint64

	totalInputTokens    uint64
	totalOutputTokens   uint64
	totalThinkingTokens uint64
	hasThinkingTokens   bool

	totalCostUSD float64
	hasCost      bool

	providerCounts map[types.Provider]uint64
	modelCounts    map[string]uint64
}

// New creates a Collector for one session, with histograms allocated
// up front for the global dimension. Per-provider and per-model sets are
// created lazily on first observation.
func New(sessionID types.SessionId, cfg Config) *Collector {
	cfg = cfg.normalized()
	return &Collector{
		sessionID:      sessionID,
		cfg:            cfg,
		global:         newHistogramSet(cfg.MaxTrackableValueNs, cfg.SignificantDigits),
		perProvider:    make(map[types.Provider]*HistogramSet),
		perModel:       make(map[string]*HistogramSet),
		providerCounts: make(map[types.Provider]uint64),
		modelCounts:    make(map[string]uint64),
	}
}

// SessionID returns the session this collector was created for.
func (c *Collector) SessionID() types.SessionId {
	return c.sessionID
}

// Record absorbs one request outcome. On success it feeds the global
// histogram set plus, if enabled, the per-provider and per-model sets,
// and accumulates token/cost totals. On failure only the failure
// counter moves. Either way the provider/model breakdown counters and
// the raw sample list are updated, so AggregatedMetrics.total_requests
// always equals the sum of every breakdown entry regardless of outcome.
func (c *Collector) Record(m types.RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Success {
		c.global.record(m.TTFT, m.TotalLatency, m.InterTokenLatencies, m.TokensPerSecond)

		if c.cfg.PerProviderEnabled {
			set, ok := c.perProvider[m.Provider]
			if !ok {
				set = newHistogramSet(c.cfg.MaxTrackableValueNs, c.cfg.SignificantDigits)
				c.perProvider[m.Provider] = set
			}
			set.record(m.TTFT, m.TotalLatency, m.InterTokenLatencies, m.TokensPerSecond)
		}

		if c.cfg.PerModelEnabled {
			set, ok := c.perModel[m.Model]
			if !ok {
				set = newHistogramSet(c.cfg.MaxTrackableValueNs, c.cfg.SignificantDigits)
				c.perModel[m.Model] = set
			}
			set.record(m.TTFT, m.TotalLatency, m.InterTokenLatencies, m.TokensPerSecond)
		}

		c.totalInputTokens += m.InputTokens
		c.totalOutputTokens += m.OutputTokens
		if m.ThinkingTokens != nil {
			c.totalThinkingTokens += *m.ThinkingTokens
			c.hasThinkingTokens = true
		}
		if m.CostUSD != nil {
			c.totalCostUSD += *m.CostUSD
			c.hasCost = true
		}

		c.successfulRequests++
	} else {
		c.failedRequests++
	}

	c.providerCounts[m.Provider]++
	c.modelCounts[m.Model]++
	c.raw = append(c.raw, m)
}

// Len returns the number of requests recorded so far, success or
// failure.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.raw)
}

// Clear resets the collector to its just-created state, discarding every
// histogram, counter, and raw sample.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.global = newHistogramSet(c.cfg.MaxTrackableValueNs, c.cfg.SignificantDigits)
	c.perProvider = make(map[types.Provider]*HistogramSet)
	c.perModel = make(map[string]*HistogramSet)
	c.providerCounts = make(map[types.Provider]uint64)
	c.modelCounts = make(map[string]uint64)
	c.raw = nil
	c.successfulRequests = 0
	c.failedRequests = 0
	c.totalInputTokens = 0
	c.totalOutputTokens = 0
	c.totalThinkingTokens = 0
	c.hasThinkingTokens = false
	c.totalCostUSD = 0
	c.hasCost = false
}

// StateSnapshot is a deep-copied view of the collector's state: cloned
// histograms at every tier plus a copy of the raw sample slice and
// scalar counters. Percentile math runs against this copy, unlocked,
// so it never blocks concurrent Record calls.
type StateSnapshot struct {
	SessionID types.SessionId

	Global      *HistogramSet
	PerProvider map[types.Provider]*HistogramSet
	PerModel    map[string]*HistogramSet

	Raw []types.RequestMetrics

	SuccessfulRequests uint64
	FailedRequests     uint64

	TotalInputTokens    uint64
	TotalOutputTokens   uint64
	TotalThinkingTokens uint64
	HasThinkingTokens   bool

	TotalCostUSD float64
	HasCost      bool

	ProviderCounts map[types.Provider]uint64
	ModelCounts    map[string]uint64
}

// Snapshot takes the lock just long enough to clone every histogram and
// copy the scalar state, then releases it.
func (c *Collector) Snapshot() StateSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	perProvider := make(map[types.Provider]*HistogramSet, len(c.perProvider))
	for k, v := range c.perProvider {
		perProvider[k] = v.snapshot()
	}
	perModel := make(map[string]*HistogramSet, len(c.perModel))
	for k, v := range c.perModel {
		perModel[k] = v.snapshot()
	}

	raw := make([]types.RequestMetrics, len(c.raw))
	copy(raw, c.raw)

	providerCounts := make(map[types.Provider]uint64, len(c.providerCounts))
	for k, v := range c.providerCounts {
		providerCounts[k] = v
	}
	modelCounts := make(map[string]uint64, len(c.modelCounts))
	for k, v := range c.modelCounts {
		modelCounts[k] = v
	}

	return StateSnapshot{
		SessionID:           c.sessionID,
		Global:              c.global.snapshot(),
		PerProvider:         perProvider,
		PerModel:            perModel,
		Raw:                 raw,
		SuccessfulRequests:  c.successfulRequests,
		FailedRequests:      c.failedRequests,
		TotalInputTokens:    c.totalInputTokens,
		TotalOutputTokens:   c.totalOutputTokens,
		TotalThinkingTokens: c.totalThinkingTokens,
		HasThinkingTokens:   c.hasThinkingTokens,
		TotalCostUSD:        c.totalCostUSD,
		HasCost:             c.hasCost,
		ProviderCounts:      providerCounts,
		ModelCounts:         modelCounts,
	}
}
