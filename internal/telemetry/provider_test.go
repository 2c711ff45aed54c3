package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

type fakeRecorder struct {
	recorded []types.RequestMetrics
}

func (f *fakeRecorder) Record(m types.RequestMetrics) {
	f.recorded = append(f.recorded, m)
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Shutdown(context.Background())

	p.RecordRetry(context.Background(), "openai")
	p.RecordStall(context.Background(), "openai")
}

func TestRecorderForwardsToInner(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Shutdown(context.Background())

	inner := &fakeRecorder{}
	rec := NewRecorder(inner, p)

	provider, err := types.ParseProvider("openai")
	if err != nil {
		t.Fatalf("ParseProvider: %v", err)
	}

	m := types.RequestMetrics{
		RequestID:    types.NewRequestId(),
		Provider:     provider,
		Model:        "gpt-4o",
		Timestamp:    time.Now(),
		TTFT:         120 * time.Millisecond,
		TotalLatency: 900 * time.Millisecond,
		InterTokenLatencies: []time.Duration{
			10 * time.Millisecond,
			12 * time.Millisecond,
		},
		Success: true,
	}

	rec.Record(m)

	if len(inner.recorded) != 1 {
		t.Fatalf("got %d recorded metrics, want 1", len(inner.recorded))
	}
	if inner.recorded[0].RequestID != m.RequestID {
		t.Errorf("forwarded metrics RequestID = %v, want %v", inner.recorded[0].RequestID, m.RequestID)
	}
}

func TestRecorderHandlesFailure(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Shutdown(context.Background())

	inner := &fakeRecorder{}
	rec := NewRecorder(inner, p)

	errMsg := "connection reset"
	m := types.RequestMetrics{
		RequestID:    types.NewRequestId(),
		Provider:     types.ProviderOpenAI,
		Model:        "gpt-4o",
		Timestamp:    time.Now(),
		TotalLatency: 50 * time.Millisecond,
		Success:      false,
		Error:        &errMsg,
	}

	rec.Record(m)

	if len(inner.recorded) != 1 || inner.recorded[0].Success {
		t.Fatalf("expected one failed metric forwarded, got %+v", inner.recorded)
	}
}
