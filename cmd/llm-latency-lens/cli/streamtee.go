package cli

import (
	"context"
	"fmt"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
)

// streamTeeProvider wraps a Provider so profile --stream can print
// tokens to stdout as they arrive while still handing the orchestrator
// (and, downstream, streaming.Drain) the exact same event sequence.
// Decorating the provider keeps this printing concern out of
// internal/orchestrator and internal/streaming entirely.
type streamTeeProvider struct {
	providers.Provider
}

func (p streamTeeProvider) Stream(ctx context.Context, req providers.Request) (streaming.Response, error) {
	resp, err := p.Provider.Stream(ctx, req)
	if err != nil {
		return streaming.Response{}, err
	}

	teed := make(chan streaming.TokenEventOrError, 8)
	go func() {
		defer close(teed)
		for item := range resp.TokenEvent {
			if item.Event.Content != nil {
				fmt.Print(*item.Event.Content)
			}
			teed <- item
		}
		fmt.Println()
	}()

	resp.TokenEvent = teed
	return resp, nil
}
