package types

import (
	"encoding/json"
	"fmt"
)

// Provider is the closed set of vendors this system knows how to label
// and, for openai/anthropic, actually stream from.
type Provider int

const (
	ProviderOpenAI Provider = iota
	ProviderAnthropic
	ProviderGoogle
	ProviderAWSBedrock
	ProviderAzureOpenAI
	ProviderGeneric
)

// String returns the canonical lowercase wire form.
func (p Provider) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGoogle:
		return "google"
	case ProviderAWSBedrock:
		return "aws-bedrock"
	case ProviderAzureOpenAI:
		return "azure-openai"
	case ProviderGeneric:
		return "generic"
	default:
		return "generic"
	}
}

// ParseProvider maps a wire-form string onto a Provider.
func ParseProvider(s string) (Provider, error) {
	switch s {
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic":
		return ProviderAnthropic, nil
	case "google":
		return ProviderGoogle, nil
	case "aws-bedrock":
		return ProviderAWSBedrock, nil
	case "azure-openai":
		return ProviderAzureOpenAI, nil
	case "generic":
		return ProviderGeneric, nil
	default:
		return 0, fmt.Errorf("unknown provider %q", s)
	}
}

func (p Provider) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Provider) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseProvider(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
