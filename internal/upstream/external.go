package upstream

import (
	"context"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/baseline"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// AnalyticsHubReader is the contract a future adapter for a historical
// baseline/percentile-summary service would need to satisfy: fetch a
// HistoricalBaseline for a provider/model pair over a window. Nothing in
// this repo implements it, and no subcommand loads a HistoricalBaseline:
// cmd/llm-latency-lens's compare subcommand compares live runs against
// each other with internal/aggregator.Compare.
type AnalyticsHubReader interface {
	HistoricalBaseline(ctx context.Context, provider types.Provider, model string) (baseline.HistoricalBaseline, error)
}

// ObservatoryReader is the contract a future adapter for a live
// telemetry/tracing feed would need to satisfy: stream already-recorded
// RequestMetrics for replay or cross-checking against a local run.
// Nothing in this repo implements it; this build always produces its own
// RequestMetrics by streaming providers directly.
type ObservatoryReader interface {
	RecentRequests(ctx context.Context, limit int) ([]types.RequestMetrics, error)
}
