package providers

import (
	"context"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providererr"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
)

// LabelProvider is a name-only stand-in for a provider this build can
// enumerate and price but cannot yet stream from directly: Azure
// OpenAI and AWS Bedrock both re-expose an upstream model behind
// infrastructure-specific auth this module does not implement, and
// "generic" covers anything a user points at without a known wire
// format. All three exist so config validation and provider-selection
// flags have a complete, consistent vocabulary.
type LabelProvider struct {
	label   string
	pricing map[string]pricePerMillion
	models  []string
}

// NewAzureOpenAIProvider labels requests routed through an Azure
// OpenAI deployment. It reuses OpenAI's model pricing, since Azure
// bills the same underlying models at the same published rates.
func NewAzureOpenAIProvider() *LabelProvider {
	return &LabelProvider{label: "azure-openai", pricing: openAIPricing, models: openAIModels}
}

// NewBedrockProvider labels requests routed through AWS Bedrock.
func NewBedrockProvider() *LabelProvider {
	return &LabelProvider{label: "aws-bedrock", models: anthropicModels}
}

// NewGenericProvider labels an endpoint with no known pricing or model
// list; SupportedModels returns empty, so ValidateModel accepts any
// model name.
func NewGenericProvider() *LabelProvider {
	return &LabelProvider{label: "generic"}
}

func (p *LabelProvider) Name() string { return p.label }

func (p *LabelProvider) HealthCheck(ctx context.Context) error {
	return providererr.InternalError(p.label + " provider does not support direct connectivity checks")
}

func (p *LabelProvider) Stream(ctx context.Context, req Request) (streaming.Response, error) {
	return streaming.Response{}, providererr.InternalError(p.label + " provider does not support streaming yet")
}

func (p *LabelProvider) CalculateCost(model string, inputTokens, outputTokens uint64) (float64, bool) {
	if p.pricing == nil {
		return 0, false
	}
	return calculateCost(p.pricing, model, inputTokens, outputTokens)
}

func (p *LabelProvider) SupportedModels() []string {
	return p.models
}
