package providers

import (
	"fmt"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/config"
)

// New constructs the named provider directly from its config struct,
// without an intermediate builder: config already holds everything a
// provider needs, so there is nothing a builder would add.
func New(name string, pc config.ProviderConfig) (Provider, error) {
	switch name {
	case "openai":
		var opts []OpenAIOption
		if pc.Endpoint != "" {
			opts = append(opts, WithOpenAIBaseURL(pc.Endpoint))
		}
		if pc.Organization != "" {
			opts = append(opts, WithOpenAIOrganization(pc.Organization))
		}
		return NewOpenAIProvider(pc.APIKey, opts...), nil
	case "anthropic":
		var opts []AnthropicOption
		if pc.Endpoint != "" {
			opts = append(opts, WithAnthropicBaseURL(pc.Endpoint))
		}
		if pc.APIVersion != "" {
			opts = append(opts, WithAnthropicAPIVersion(pc.APIVersion))
		}
		return NewAnthropicProvider(pc.APIKey, opts...), nil
	case "google":
		return NewGoogleProvider(pc.APIKey), nil
	case "azure-openai":
		return NewAzureOpenAIProvider(), nil
	case "aws-bedrock":
		return NewBedrockProvider(), nil
	case "generic":
		return NewGenericProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
