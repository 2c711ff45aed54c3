// Package orchestrator drives many concurrent streaming requests against
// a single provider, enforcing a rate limit and a concurrency ceiling,
// observing a shared cancellation signal, and recording one
// RequestMetrics per attempt regardless of outcome.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/clock"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// Config controls one orchestrator run.
type Config struct {
	Concurrency     int
	TotalRequests   int
	RateLimit       float64
	ShowProgress    bool
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a single-request, unlimited-rate configuration
// suitable for an ad hoc profile run.
func DefaultConfig() Config {
	return Config{
		Concurrency:     1,
		TotalRequests:   1,
		RateLimit:       0,
		ShowProgress:    false,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Recorder accepts one RequestMetrics per attempt, success or failure.
// The histogram collector implements this; the orchestrator only depends
// on the interface so it never needs to import the metrics package.
type Recorder interface {
	Record(m types.RequestMetrics)
}

// ProgressReporter is incremented once per completed attempt. Nothing in
// this package implements it: the progress bar lives in the command
// layer so this package never imports a terminal UI library.
type ProgressReporter interface {
	Increment()
}

// ExecutionSummary reports the shape of a finished (or cancelled) run.
type ExecutionSummary struct {
	TotalRequests      uint64
	SuccessfulRequests uint64
	FailedRequests     uint64
	TotalDuration      time.Duration
	RequestsPerSecond  float64
}

// Orchestrator runs a request template TotalRequests times against a
// provider, respecting Concurrency and RateLimit, and writes every
// outcome to a Recorder.
type Orchestrator struct {
	cfg      Config
	provider providers.Provider
	recorder Recorder
	progress ProgressReporter

	rateLimiter *RateLimiter
	inFlight    *InFlightLimiter
}

// New builds an Orchestrator. progress may be nil to disable progress
// reporting regardless of cfg.ShowProgress.
func New(cfg Config, provider providers.Provider, recorder Recorder, progress ProgressReporter) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return &Orchestrator{
		cfg:         cfg,
		provider:    provider,
		recorder:    recorder,
		progress:    progress,
		rateLimiter: NewRateLimiter(cfg.RateLimit),
		inFlight:    NewInFlightLimiter(cfg.Concurrency),
	}
}

// Run executes cfg.TotalRequests attempts of template, stopping early if
// ctx is cancelled. Cancellation is cooperative: requests already
// streaming are given cfg.ShutdownTimeout to finish before Run returns,
// and no request started after cancellation fires is counted.
func (o *Orchestrator) Run(ctx context.Context, template providers.Request) ExecutionSummary {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	clk := clock.New()
	start := clk.Now()

	var (
		mu         sync.Mutex
		successful uint64
		failed     uint64
		wg         sync.WaitGroup
	)

	for i := 0; i < o.cfg.TotalRequests; i++ {
		if runCtx.Err() != nil {
			break
		}

		if err := o.rateLimiter.Acquire(runCtx); err != nil {
			break
		}

		if err := o.inFlight.Acquire(runCtx); err != nil {
			break
		}

		req := template
		req.RequestID = types.NewRequestId()

		wg.Add(1)
		go func(req providers.Request) {
			defer wg.Done()
			defer o.inFlight.Release()

			ok := o.runOne(runCtx, req, clk)

			mu.Lock()
			if ok {
				successful++
			} else {
				failed++
			}
			mu.Unlock()

			if o.progress != nil {
				o.progress.Increment()
			}
		}(req)
	}

	drainDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(drainDone)
	}()

	select {
	case <-drainDone:
	case <-ctx.Done():
		select {
		case <-drainDone:
		case <-time.After(o.cfg.ShutdownTimeout):
			log.Printf("orchestrator: shutdown timeout reached with requests still in flight")
		}
	}

	elapsed := clk.Since(start)

	mu.Lock()
	total := successful + failed
	summary := ExecutionSummary{
		TotalRequests:      total,
		SuccessfulRequests: successful,
		FailedRequests:     failed,
		TotalDuration:      elapsed,
	}
	mu.Unlock()

	if elapsed > 0 {
		summary.RequestsPerSecond = float64(summary.TotalRequests) / elapsed.Seconds()
	}

	return summary
}

// runOne executes a single request end to end, always producing and
// recording a RequestMetrics. It recovers from a panic in the streaming
// path, counting it as a failed attempt rather than aborting the run.
func (o *Orchestrator) runOne(ctx context.Context, req providers.Request, clk clock.Clock) (ok bool) {
	requestStart := clk.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: request %s panicked: %v", req.RequestID, r)
			o.recordFailure(req, requestStart, clk, fmt.Sprintf("panic: %v", r))
			ok = false
		}
	}()

	result, err := providers.Complete(ctx, o.provider, req)
	if err != nil {
		o.recordFailure(req, requestStart, clk, err.Error())
		return false
	}

	o.recordSuccess(req, requestStart, clk, result)
	return true
}

func (o *Orchestrator) recordSuccess(req providers.Request, requestStart clock.Timestamp, clk clock.Clock, result streaming.CompletionResult) {
	totalLatency := clk.Since(requestStart)

	m := types.RequestMetrics{
		RequestID:           req.RequestID,
		SessionID:           req.SessionID,
		Provider:            o.providerKind(),
		Model:               req.Model,
		Timestamp:           requestStart.Wall().UTC(),
		TotalLatency:        totalLatency,
		InterTokenLatencies: interTokenLatencies(result),
		Success:             true,
	}

	if ttft, ok := result.TTFT(); ok {
		m.TTFT = ttft
	}

	if result.Metadata.InputTokens != nil {
		m.InputTokens = *result.Metadata.InputTokens
	}
	if result.Metadata.OutputTokens != nil {
		m.OutputTokens = *result.Metadata.OutputTokens
	}
	m.ThinkingTokens = result.Metadata.ThinkingTokens
	m.CostUSD = result.Metadata.EstimatedCost

	if tps, ok := result.TokensPerSecond(); ok {
		m.TokensPerSecond = tps
	}

	o.recorder.Record(m)
}

func (o *Orchestrator) recordFailure(req providers.Request, requestStart clock.Timestamp, clk clock.Clock, errMsg string) {
	totalLatency := clk.Since(requestStart)
	msg := errMsg

	m := types.RequestMetrics{
		RequestID:    req.RequestID,
		SessionID:    req.SessionID,
		Provider:     o.providerKind(),
		Model:        req.Model,
		Timestamp:    requestStart.Wall().UTC(),
		TotalLatency: totalLatency,
		Success:      false,
		Error:        &msg,
	}

	o.recorder.Record(m)
}

// providerKind maps the provider's name onto the closed Provider enum,
// falling back to ProviderGeneric for a name the enum does not know
// (a label-only adapter added after the enum was last extended).
func (o *Orchestrator) providerKind() types.Provider {
	p, err := types.ParseProvider(o.provider.Name())
	if err != nil {
		return types.ProviderGeneric
	}
	return p
}

func interTokenLatencies(result streaming.CompletionResult) []time.Duration {
	events := result.TokenEvents
	latencies := make([]time.Duration, 0, len(events))
	for _, e := range events {
		if e.InterTokenLatency != nil {
			latencies = append(latencies, *e.InterTokenLatency)
		}
	}
	return latencies
}
