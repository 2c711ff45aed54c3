package providers

import (
	"context"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providererr"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
)

// GoogleProvider reports itself correctly to the config and
// provider-selection layers and answers model/cost questions from the
// Gemini pricing table, but does not yet speak the Gemini streaming
// protocol. Wiring the stream is future work; until then every
// streaming call fails with a clear error rather than silently talking
// to the wrong API shape.
type GoogleProvider struct {
	apiKey string
}

// NewGoogleProvider records credentials for future use; Stream and
// HealthCheck make no network call today, but CalculateCost and
// SupportedModels are fully live.
func NewGoogleProvider(apiKey string) *GoogleProvider {
	return &GoogleProvider{apiKey: apiKey}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) HealthCheck(ctx context.Context) error {
	return providererr.InternalError("google provider is not implemented")
}

func (p *GoogleProvider) Stream(ctx context.Context, req Request) (streaming.Response, error) {
	return streaming.Response{}, providererr.InternalError("google provider does not support streaming yet")
}

func (p *GoogleProvider) CalculateCost(model string, inputTokens, outputTokens uint64) (float64, bool) {
	return calculateCost(googlePricing, model, inputTokens, outputTokens)
}

func (p *GoogleProvider) SupportedModels() []string {
	return googleModels
}
