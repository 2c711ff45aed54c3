package providers

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/clock"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

func TestDecodeOpenAISSE(t *testing.T) {
	body := "" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{}}]}\n\n" +
		"data: [DONE]\n\n"

	rc := io.NopCloser(strings.NewReader(body))
	out := make(chan streaming.TokenEventOrError, 8)
	requestID := types.NewRequestId()
	start := clock.New().Now()

	decodeOpenAISSE(rc, time.Second, requestID, start, out, nil)

	var events []streaming.TokenEventOrError
	for item := range out {
		events = append(events, item)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if *events[0].Event.Content != "Hel" {
		t.Errorf("first event content = %q", *events[0].Event.Content)
	}
	if *events[1].Event.Content != "lo" {
		t.Errorf("second event content = %q", *events[1].Event.Content)
	}
	if events[1].Event.InterTokenLatency == nil {
		t.Error("expected second event to carry an inter-token latency")
	}
}

func TestDecodeAnthropicSSE(t *testing.T) {
	body := "" +
		"event: message_start\ndata: {}\n\n" +
		"event: content_block_start\ndata: {}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\" there\"}}\n\n" +
		"event: content_block_stop\ndata: {}\n\n" +
		"event: message_delta\ndata: {}\n\n" +
		"event: message_stop\ndata: {}\n\n"

	rc := io.NopCloser(strings.NewReader(body))
	out := make(chan streaming.TokenEventOrError, 8)
	requestID := types.NewRequestId()
	start := clock.New().Now()

	decodeAnthropicSSE(rc, time.Second, requestID, start, out, nil)

	var events []streaming.TokenEventOrError
	for item := range out {
		events = append(events, item)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if *events[0].Event.Content != "Hi" {
		t.Errorf("first event content = %q", *events[0].Event.Content)
	}
	if *events[1].Event.Content != " there" {
		t.Errorf("second event content = %q", *events[1].Event.Content)
	}
}

// TestDecodeOpenAISSETruncatedStreamIsError covers a connection that
// closes after emitting deltas but before the "[DONE]" sentinel: the
// decoder must surface this as an error rather than letting the
// partial completion look like a success.
func TestDecodeOpenAISSETruncatedStreamIsError(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"

	rc := io.NopCloser(strings.NewReader(body))
	out := make(chan streaming.TokenEventOrError, 8)
	requestID := types.NewRequestId()
	start := clock.New().Now()

	decodeOpenAISSE(rc, time.Second, requestID, start, out, nil)

	var events []streaming.TokenEventOrError
	for item := range out {
		events = append(events, item)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (one token, one terminal error)", len(events))
	}
	if events[0].Err != nil {
		t.Errorf("first event should be the token, got error %v", events[0].Err)
	}
	if events[1].Err == nil {
		t.Error("expected the stream's end to surface as an error")
	}
}

// TestDecodeAnthropicSSETruncatedStreamIsError mirrors the OpenAI case
// for a stream that closes before a message_stop event arrives.
func TestDecodeAnthropicSSETruncatedStreamIsError(t *testing.T) {
	body := "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n"

	rc := io.NopCloser(strings.NewReader(body))
	out := make(chan streaming.TokenEventOrError, 8)
	requestID := types.NewRequestId()
	start := clock.New().Now()

	decodeAnthropicSSE(rc, time.Second, requestID, start, out, nil)

	var events []streaming.TokenEventOrError
	for item := range out {
		events = append(events, item)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (one token, one terminal error)", len(events))
	}
	if events[0].Err != nil {
		t.Errorf("first event should be the token, got error %v", events[0].Err)
	}
	if events[1].Err == nil {
		t.Error("expected the stream's end to surface as an error")
	}
}

func TestDecodeAnthropicSSEError(t *testing.T) {
	body := "event: error\ndata: {\"type\":\"error\",\"message\":\"overloaded\"}\n\n"

	rc := io.NopCloser(strings.NewReader(body))
	out := make(chan streaming.TokenEventOrError, 8)
	requestID := types.NewRequestId()
	start := clock.New().Now()

	decodeAnthropicSSE(rc, time.Second, requestID, start, out, nil)

	var events []streaming.TokenEventOrError
	for item := range out {
		events = append(events, item)
	}

	if len(events) != 1 || events[0].Err == nil {
		t.Fatalf("expected a single error event, got %+v", events)
	}
}
