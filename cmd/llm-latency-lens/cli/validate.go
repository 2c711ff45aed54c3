package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
)

type validateFlags struct {
	provider    string
	model       string
	apiKey      string
	endpoint    string
	testRequest bool
}

// newValidateCommand checks that a provider is configured well enough
// to run against: an api key is present and plausibly shaped, and the
// model (if given) is in the provider's supported list. With
// --test-request it additionally performs the provider's real
// HealthCheck call, per DESIGN.md's decision on spec.md §9's open
// question about a paid Anthropic ping.
func newValidateCommand() *cobra.Command {
	var vf validateFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a provider is configured correctly",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, vf)
		},
	}

	flagsSet := cmd.Flags()
	flagsSet.StringVar(&vf.provider, "provider", "", "provider to validate (openai, anthropic, google, azure-openai, aws-bedrock, generic)")
	flagsSet.StringVar(&vf.model, "model", "", "model name to check against the provider's supported list")
	flagsSet.StringVar(&vf.apiKey, "api-key", "", "API key (overrides LLM_API_KEY and the provider-specific env var)")
	flagsSet.StringVar(&vf.endpoint, "endpoint", "", "override the provider's default endpoint")
	flagsSet.BoolVar(&vf.testRequest, "test-request", false, "perform a real health-check request against the provider")

	return cmd
}

func runValidate(cmd *cobra.Command, vf validateFlags) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rp, err := resolveProvider(cfg, vf.provider, vf.model, vf.apiKey, vf.endpoint)
	if err != nil {
		return err
	}

	if rp.cfg.APIKey == "" {
		return fmt.Errorf("validate: provider %q has no api key configured", rp.name)
	}
	if len(rp.cfg.APIKey) < 8 {
		return fmt.Errorf("validate: provider %q api key looks implausibly short", rp.name)
	}

	provider, err := buildProvider(rp)
	if err != nil {
		return err
	}

	if rp.model != "" {
		if err := providers.ValidateModel(provider, rp.model); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}

	if vf.testRequest {
		if err := provider.HealthCheck(ctx); err != nil {
			return fmt.Errorf("validate: health check failed: %w", err)
		}
	}

	if flags.jsonOutput {
		fmt.Printf("{\"provider\":%q,\"model\":%q,\"ok\":true,\"tested\":%v}\n", rp.name, rp.model, vf.testRequest)
		return nil
	}

	fmt.Printf("%s: configuration ok", rp.name)
	if rp.model != "" {
		fmt.Printf(", model %q supported", rp.model)
	}
	if vf.testRequest {
		fmt.Print(", health check passed")
	}
	fmt.Println()
	return nil
}
