package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providererr"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// fakeProvider streams back two fixed tokens per request, or always
// fails if shouldFail is set.
type fakeProvider struct {
	shouldFail bool
}

func (f *fakeProvider) Name() string                       { return "openai" }
func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeProvider) SupportedModels() []string           { return nil }
func (f *fakeProvider) CalculateCost(model string, in, out uint64) (float64, bool) {
	return 0, false
}

func (f *fakeProvider) Stream(ctx context.Context, req providers.Request) (streaming.Response, error) {
	if f.shouldFail {
		return streaming.Response{}, providererr.InternalError("simulated failure")
	}

	out := make(chan streaming.TokenEventOrError, 2)
	content1, content2 := "He", "llo"
	out <- streaming.TokenEventOrError{Event: types.TokenEvent{
		RequestID:      req.RequestID,
		Sequence:       0,
		Content:        &content1,
		TimeSinceStart: time.Millisecond,
	}}
	out <- streaming.TokenEventOrError{Event: types.TokenEvent{
		RequestID:      req.RequestID,
		Sequence:       1,
		Content:        &content2,
		TimeSinceStart: 2 * time.Millisecond,
	}}
	close(out)

	return streaming.Response{
		RequestID:  req.RequestID,
		TokenEvent: out,
		Metadata:   streaming.ResponseMetadata{Model: req.Model},
	}, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	metrics []types.RequestMetrics
}

func (r *fakeRecorder) Record(m types.RequestMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.metrics)
}

type fakeProgress struct {
	n atomicCounter
}

type atomicCounter struct {
	mu sync.Mutex
	v  int
}

func (c *atomicCounter) add() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v++
}

func (c *atomicCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (p *fakeProgress) Increment() { p.n.add() }

func TestOrchestratorRunSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	prog := &fakeProgress{}
	o := New(Config{
		Concurrency:     4,
		TotalRequests:   10,
		ShutdownTimeout: time.Second,
	}, &fakeProvider{}, rec, prog)

	summary := o.Run(context.Background(), providers.Request{Model: "gpt-4o"})

	if summary.TotalRequests != 10 {
		t.Errorf("TotalRequests = %d, want 10", summary.TotalRequests)
	}
	if summary.SuccessfulRequests != 10 {
		t.Errorf("SuccessfulRequests = %d, want 10", summary.SuccessfulRequests)
	}
	if summary.FailedRequests != 0 {
		t.Errorf("FailedRequests = %d, want 0", summary.FailedRequests)
	}
	if rec.count() != 10 {
		t.Errorf("recorded %d metrics, want 10", rec.count())
	}
	if prog.n.get() != 10 {
		t.Errorf("progress incremented %d times, want 10", prog.n.get())
	}
}

func TestOrchestratorRunFailure(t *testing.T) {
	rec := &fakeRecorder{}
	o := New(Config{
		Concurrency:     2,
		TotalRequests:   3,
		ShutdownTimeout: time.Second,
	}, &fakeProvider{shouldFail: true}, rec, nil)

	summary := o.Run(context.Background(), providers.Request{Model: "gpt-4o"})

	if summary.FailedRequests != 3 {
		t.Errorf("FailedRequests = %d, want 3", summary.FailedRequests)
	}
	if summary.SuccessfulRequests != 0 {
		t.Errorf("SuccessfulRequests = %d, want 0", summary.SuccessfulRequests)
	}
	if rec.count() != 3 {
		t.Fatalf("recorded %d metrics, want 3", rec.count())
	}
	for _, m := range rec.metrics {
		if m.Success {
			t.Error("expected every metric to report Success=false")
		}
		if m.Error == nil {
			t.Error("expected Error to be set on a failed attempt")
		}
	}
}

func TestOrchestratorRunCancellation(t *testing.T) {
	rec := &fakeRecorder{}
	o := New(Config{
		Concurrency:     1,
		TotalRequests:   1000,
		ShutdownTimeout: time.Second,
	}, &fakeProvider{}, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := o.Run(ctx, providers.Request{Model: "gpt-4o"})

	if summary.TotalRequests >= 1000 {
		t.Errorf("expected cancellation to stop the run early, got %d requests", summary.TotalRequests)
	}
}

func TestRateLimiterDisabledWhenZero(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl.Enabled() {
		t.Error("expected a zero target to disable the limiter")
	}
	if err := rl.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire on disabled limiter returned error: %v", err)
	}
}

func TestInFlightLimiterBlocksBeyondCapacity(t *testing.T) {
	l := NewInFlightLimiter(1)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.TryAcquire() {
		t.Error("expected TryAcquire to fail when at capacity")
	}

	l.Release()
	if !l.TryAcquire() {
		t.Error("expected TryAcquire to succeed after Release")
	}
}
