package streaming

import (
	"context"
	"sort"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// ResponseMetadata is everything known about a request beyond its
// token content: model, token counts once known, estimated cost, and
// the raw response headers kept for debugging.
type ResponseMetadata struct {
	Model          string
	InputTokens    *uint64
	OutputTokens   *uint64
	ThinkingTokens *uint64
	EstimatedCost  *float64
	Headers        []KeyValue
}

// KeyValue is a single raw HTTP header pair.
type KeyValue struct {
	Key   string
	Value string
}

// Response is what a provider's Stream call returns: a channel of
// token events (closed when the stream ends, by error or completion)
// and the metadata known at stream-start time.
type Response struct {
	RequestID  types.RequestId
	TokenEvent <-chan TokenEventOrError
	Metadata   ResponseMetadata
}

// TokenEventOrError carries either a decoded token event or a terminal
// error, mirroring how a provider's channel reports mid-stream failure
// without a second return channel.
type TokenEventOrError struct {
	Event types.TokenEvent
	Err   error
}

// Checkpoint names a point in time reached while building a request,
// used to diagnose where latency accumulates before the first token.
type Checkpoint struct {
	Name string
	At   time.Duration
}

// CompletionResult is the outcome of draining a Response to the end:
// the concatenated text, every token event in order, and the
// checkpoints the caller passed to Drain. No adapter records
// checkpoints itself, and providers.Complete passes none, so
// Checkpoints is empty on that path.
type CompletionResult struct {
	RequestID   types.RequestId
	Content     string
	TokenEvents []types.TokenEvent
	Metadata    ResponseMetadata
	Checkpoints []Checkpoint
}

// TTFT is the time-to-first-token: the TimeSinceStart of the first
// token event, or false if no tokens arrived.
func (c CompletionResult) TTFT() (time.Duration, bool) {
	if len(c.TokenEvents) == 0 {
		return 0, false
	}
	return c.TokenEvents[0].TimeSinceStart, true
}

// AvgInterTokenLatency is the mean of every non-nil InterTokenLatency
// across the token events.
func (c CompletionResult) AvgInterTokenLatency() (time.Duration, bool) {
	var total time.Duration
	var count int
	for _, e := range c.TokenEvents {
		if e.InterTokenLatency != nil {
			total += *e.InterTokenLatency
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / time.Duration(count), true
}

// MedianInterTokenLatency is the median of every non-nil
// InterTokenLatency across the token events.
func (c CompletionResult) MedianInterTokenLatency() (time.Duration, bool) {
	latencies := c.sortedInterTokenLatencies()
	if len(latencies) == 0 {
		return 0, false
	}
	mid := len(latencies) / 2
	if len(latencies)%2 == 0 {
		return (latencies[mid-1] + latencies[mid]) / 2, true
	}
	return latencies[mid], true
}

// P95InterTokenLatency is the 95th percentile inter-token latency.
func (c CompletionResult) P95InterTokenLatency() (time.Duration, bool) {
	latencies := c.sortedInterTokenLatencies()
	if len(latencies) == 0 {
		return 0, false
	}
	idx := int(float64(len(latencies))*0.95+0.999999) - 1
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return latencies[idx], true
}

func (c CompletionResult) sortedInterTokenLatencies() []time.Duration {
	latencies := make([]time.Duration, 0, len(c.TokenEvents))
	for _, e := range c.TokenEvents {
		if e.InterTokenLatency != nil {
			latencies = append(latencies, *e.InterTokenLatency)
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	return latencies
}

// TotalGenerationTime is the TimeSinceStart of the last token event.
func (c CompletionResult) TotalGenerationTime() (time.Duration, bool) {
	if len(c.TokenEvents) == 0 {
		return 0, false
	}
	return c.TokenEvents[len(c.TokenEvents)-1].TimeSinceStart, true
}

// TokensPerSecond is len(TokenEvents) divided by TotalGenerationTime.
func (c CompletionResult) TokensPerSecond() (float64, bool) {
	d, ok := c.TotalGenerationTime()
	if !ok || d <= 0 {
		return 0, false
	}
	return float64(len(c.TokenEvents)) / d.Seconds(), true
}

// Drain reads resp's channel to completion, accumulating content and
// token events into a CompletionResult. It returns the first error
// encountered on the channel, if any; partial results collected before
// the error are still returned in that case.
func Drain(ctx context.Context, resp Response, checkpoints []Checkpoint) (CompletionResult, error) {
	result := CompletionResult{
		RequestID:   resp.RequestID,
		Metadata:    resp.Metadata,
		Checkpoints: checkpoints,
	}

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case item, ok := <-resp.TokenEvent:
			if !ok {
				return result, nil
			}
			if item.Err != nil {
				return result, item.Err
			}
			if item.Event.Content != nil {
				result.Content += *item.Event.Content
			}
			result.TokenEvents = append(result.TokenEvents, item.Event)
		}
	}
}
