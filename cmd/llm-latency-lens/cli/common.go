package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/config"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/exporters"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/telemetry"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// resolvedProvider is the fully layered view of one provider's settings:
// CLI flags take precedence over environment variables, which take
// precedence over the config file, per spec.md §6.
type resolvedProvider struct {
	name     string
	model    string
	cfg      config.ProviderConfig
	endpoint string
}

// loadConfig reads the config file named by --config, or the default
// search locations when unset.
func loadConfig() (config.Config, error) {
	return config.Load(flags.configPath)
}

// resolveProvider layers flag/env/config precedence for one provider
// invocation. An empty providerFlag falls back to LLM_PROVIDER, then
// cfg.Defaults.Provider.
func resolveProvider(cfg config.Config, providerFlag, modelFlag, apiKeyFlag, endpointFlag string) (resolvedProvider, error) {
	name := firstNonEmpty(providerFlag, os.Getenv("LLM_PROVIDER"), cfg.Defaults.Provider)
	if name == "" {
		return resolvedProvider{}, fmt.Errorf("no provider specified: pass --provider, set LLM_PROVIDER, or configure defaults.provider")
	}

	pc, _ := cfg.GetProvider(name)

	apiKey := firstNonEmpty(apiKeyFlag, providerEnvAPIKey(name), os.Getenv("LLM_API_KEY"), pc.APIKey)
	if apiKey != "" {
		pc.APIKey = apiKey
	}

	if endpointFlag != "" {
		pc.Endpoint = endpointFlag
	}
	if pc.TimeoutSecs == 0 {
		pc.TimeoutSecs = cfg.Defaults.TimeoutSecs
	}
	if pc.TimeoutSecs == 0 {
		pc.TimeoutSecs = 120
	}
	if pc.MaxRetries == 0 {
		pc.MaxRetries = 3
	}

	model := firstNonEmpty(modelFlag, cfg.Defaults.Model, pc.DefaultModel)

	return resolvedProvider{name: name, model: model, cfg: pc, endpoint: pc.Endpoint}, nil
}

// providerEnvAPIKey returns the provider-specific API key environment
// variable's value, e.g. OPENAI_API_KEY for "openai".
func providerEnvAPIKey(name string) string {
	return os.Getenv(strings.ToUpper(name) + "_API_KEY")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// buildProvider constructs the provider adapter for rp, failing with a
// ConfigError-shaped message when no api key is present for an adapter
// that actually calls out (openai/anthropic/google).
func buildProvider(rp resolvedProvider) (providers.Provider, error) {
	if (rp.name == "openai" || rp.name == "anthropic" || rp.name == "google") && rp.cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q requires an api key: set --api-key, %s_API_KEY, or LLM_API_KEY", rp.name, strings.ToUpper(rp.name))
	}
	return providers.New(rp.name, rp.cfg)
}

// newTelemetryProvider builds the telemetry.Provider for this run from
// the persistent --telemetry flags, or a disabled one when --telemetry
// was never passed.
func newTelemetryProvider(ctx context.Context) (*telemetry.Provider, error) {
	cfg := telemetry.DefaultConfig()
	cfg.Enabled = flags.telemetryEnabled
	if flags.telemetryExporter != "" {
		cfg.ExporterType = telemetry.ExporterType(flags.telemetryExporter)
	}
	cfg.OTLPEndpoint = flags.otlpEndpoint
	return telemetry.NewProvider(ctx, cfg)
}

// buildProviderWithTelemetry is buildProvider plus the retry/stall hooks
// that mirror openai's and anthropic's adapters into tel. Every other
// provider has nothing to hook: they carry no retry loop or SSE decoder
// of their own.
func buildProviderWithTelemetry(rp resolvedProvider, tel *telemetry.Provider) (providers.Provider, error) {
	if (rp.name == "openai" || rp.name == "anthropic" || rp.name == "google") && rp.cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q requires an api key: set --api-key, %s_API_KEY, or LLM_API_KEY", rp.name, strings.ToUpper(rp.name))
	}

	switch rp.name {
	case "openai":
		var opts []providers.OpenAIOption
		if rp.cfg.Endpoint != "" {
			opts = append(opts, providers.WithOpenAIBaseURL(rp.cfg.Endpoint))
		}
		if rp.cfg.Organization != "" {
			opts = append(opts, providers.WithOpenAIOrganization(rp.cfg.Organization))
		}
		policy := providers.DefaultRetryPolicy()
		policy.OnRetry = func(uint32) { tel.RecordRetry(context.Background(), rp.name) }
		opts = append(opts,
			providers.WithOpenAIRetryPolicy(policy),
			providers.WithOpenAIStallHook(func() { tel.RecordStall(context.Background(), rp.name) }),
		)
		return providers.NewOpenAIProvider(rp.cfg.APIKey, opts...), nil
	case "anthropic":
		var opts []providers.AnthropicOption
		if rp.cfg.Endpoint != "" {
			opts = append(opts, providers.WithAnthropicBaseURL(rp.cfg.Endpoint))
		}
		if rp.cfg.APIVersion != "" {
			opts = append(opts, providers.WithAnthropicAPIVersion(rp.cfg.APIVersion))
		}
		policy := providers.DefaultRetryPolicy()
		policy.OnRetry = func(uint32) { tel.RecordRetry(context.Background(), rp.name) }
		opts = append(opts,
			providers.WithAnthropicRetryPolicy(policy),
			providers.WithAnthropicStallHook(func() { tel.RecordStall(context.Background(), rp.name) }),
		)
		return providers.NewAnthropicProvider(rp.cfg.APIKey, opts...), nil
	default:
		return providers.New(rp.name, rp.cfg)
	}
}

// buildRequestMessages turns a single prompt string into a one-turn
// user message list, the shape every subcommand's ad hoc request uses.
func buildRequestMessages(prompt string) []providers.Message {
	return []providers.Message{{Role: providers.RoleUser, Content: prompt}}
}

// readPrompt returns promptFlag verbatim, or the contents of
// promptFileFlag when promptFlag is empty.
func readPrompt(promptFlag, promptFileFlag string) (string, error) {
	if promptFlag != "" {
		return promptFlag, nil
	}
	if promptFileFlag == "" {
		return "", fmt.Errorf("one of --prompt or --prompt-file is required")
	}
	data, err := os.ReadFile(promptFileFlag)
	if err != nil {
		return "", fmt.Errorf("read prompt file %s: %w", promptFileFlag, err)
	}
	return string(data), nil
}

// printAggregated renders agg in JSON when --json is set, otherwise as
// a colorized console report.
func printAggregated(agg types.AggregatedMetrics) error {
	if flags.jsonOutput {
		out, err := exporters.NewJSONExporter(true).Export(agg)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	out, err := exporters.NewConsoleExporter(true).Export(agg)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
