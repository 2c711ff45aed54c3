// Package metrics is the thread-safe histogram collector that absorbs
// per-request RequestMetrics into HDR histograms and produces the
// deep-copied snapshots the aggregator computes percentiles from.
package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// DefaultMaxTrackableValueNs bounds every duration histogram at 60s;
	// a request slower than that is clamped rather than dropped.
	DefaultMaxTrackableValueNs = int64(60 * time.Second)

	// DefaultSignificantDigits is HDR's precision knob: 3 significant
	// figures keeps percentile error under 0.1% across the whole range.
	DefaultSignificantDigits = 3

	// throughputCeiling is the upper bound of the throughput histogram,
	// expressed in tokens-per-second scaled by 1000 (1,000,000 tok/s).
	throughputCeiling = int64(1_000_000_000)

	// throughputScale preserves three fractional digits of a
	// tokens-per-second float inside an integer-valued histogram.
	throughputScale = 1000.0
)

// HistogramSet is the four HDR histograms recorded for one dimension of
// the collector: global, or a single provider, or a single model.
type HistogramSet struct {
	TTFT       *hdrhistogram.Histogram
	InterToken *hdrhistogram.Histogram
	Total      *hdrhistogram.Histogram
	Throughput *hdrhistogram.Histogram

	maxDurationNs int64
	sigFigs       int
}

// newHistogramSet allocates four histograms bounded as configured.
func newHistogramSet(maxDurationNs int64, sigFigs int) *HistogramSet {
	return &HistogramSet{
		TTFT:          hdrhistogram.New(1, maxDurationNs, sigFigs),
		InterToken:    hdrhistogram.New(1, maxDurationNs, sigFigs),
		Total:         hdrhistogram.New(1, maxDurationNs, sigFigs),
		Throughput:    hdrhistogram.New(1, throughputCeiling, sigFigs),
		maxDurationNs: maxDurationNs,
		sigFigs:       sigFigs,
	}
}

// recordDuration records d, clamped into [1, histogram max] so a single
// outlier sample never fails RecordValue outright. d <= 0 means the
// value was never actually measured (e.g. an upstream-imported record
// that omitted the field) rather than a genuine zero-latency request,
// so it is skipped instead of fabricating a floor-value sample.
func recordDuration(h *hdrhistogram.Histogram, d time.Duration) {
	if d <= 0 {
		return
	}
	v := int64(d)
	if max := h.HighestTrackableValue(); v > max {
		v = max
	}
	_ = h.RecordValue(v)
}

// recordThroughput scales tokensPerSecond into the integer domain the
// throughput histogram tracks, skipping values that were never measured
// (see recordDuration).
func recordThroughput(h *hdrhistogram.Histogram, tokensPerSecond float64) {
	if tokensPerSecond <= 0 {
		return
	}
	v := int64(tokensPerSecond * throughputScale)
	if v < 1 {
		v = 1
	}
	if max := h.HighestTrackableValue(); v > max {
		v = max
	}
	_ = h.RecordValue(v)
}

// record absorbs one successful sample's TTFT, total latency, every
// inter-token latency, and scaled throughput into s. Fields that were
// never actually measured contribute no sample; see recordDuration.
func (s *HistogramSet) record(ttft, total time.Duration, interToken []time.Duration, tokensPerSecond float64) {
	recordDuration(s.TTFT, ttft)
	recordDuration(s.Total, total)
	for _, d := range interToken {
		recordDuration(s.InterToken, d)
	}
	recordThroughput(s.Throughput, tokensPerSecond)
}

// snapshot deep-copies s by merging every histogram's counts into a
// freshly allocated one, so percentile math downstream never touches a
// histogram the collector could still be writing to.
func (s *HistogramSet) snapshot() *HistogramSet {
	out := newHistogramSet(s.maxDurationNs, s.sigFigs)
	out.TTFT.Merge(s.TTFT)
	out.InterToken.Merge(s.InterToken)
	out.Total.Merge(s.Total)
	out.Throughput.Merge(s.Throughput)
	return out
}
