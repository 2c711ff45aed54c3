package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/aggregator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/exporters"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/metrics"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/orchestrator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/telemetry"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

type profileFlags struct {
	provider    string
	model       string
	prompt      string
	promptFile  string
	apiKey      string
	endpoint    string
	maxTokens   uint32
	temperature float32
	hasTemp     bool
	topP        float32
	hasTopP     bool
	timeout     uint64
	output      string
	stream      bool
}

// newProfileCommand issues a single ad hoc request and reports its
// latency and throughput. It is the orchestrator run down to one
// request: same provider construction, same recorder, same aggregation
// path a benchmark uses, so a single profile and a ten-request
// benchmark never disagree about what a request cost.
func newProfileCommand() *cobra.Command {
	var pf profileFlags

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Measure a single request's latency and throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, pf)
		},
	}

	flagsSet := cmd.Flags()
	flagsSet.StringVar(&pf.provider, "provider", "", "provider to query (openai, anthropic, google, azure-openai, aws-bedrock, generic)")
	flagsSet.StringVar(&pf.model, "model", "", "model name")
	flagsSet.StringVar(&pf.prompt, "prompt", "", "prompt text")
	flagsSet.StringVar(&pf.promptFile, "prompt-file", "", "path to a file containing the prompt")
	flagsSet.StringVar(&pf.apiKey, "api-key", "", "API key (overrides "+"LLM_API_KEY"+" and the provider-specific env var)")
	flagsSet.StringVar(&pf.endpoint, "endpoint", "", "override the provider's default endpoint")
	flagsSet.Uint32Var(&pf.maxTokens, "max-tokens", 1024, "maximum tokens to generate")
	flagsSet.Float32Var(&pf.temperature, "temperature", 0, "sampling temperature")
	flagsSet.Float32Var(&pf.topP, "top-p", 0, "nucleus sampling threshold")
	flagsSet.Uint64Var(&pf.timeout, "timeout", 120, "per-request timeout in seconds")
	flagsSet.StringVar(&pf.output, "output", "", "write the JSON result to this path instead of stdout")
	flagsSet.BoolVar(&pf.stream, "stream", false, "print tokens to stdout as they arrive")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		pf.hasTemp = flagsSet.Changed("temperature")
		pf.hasTopP = flagsSet.Changed("top-p")
	}

	return cmd
}

func runProfile(cmd *cobra.Command, pf profileFlags) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rp, err := resolveProvider(cfg, pf.provider, pf.model, pf.apiKey, pf.endpoint)
	if err != nil {
		return err
	}
	if pf.timeout != 0 {
		rp.cfg.TimeoutSecs = pf.timeout
	}

	tel, err := newTelemetryProvider(ctx)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer tel.Shutdown(ctx)

	provider, err := buildProviderWithTelemetry(rp, tel)
	if err != nil {
		return err
	}
	if pf.stream {
		provider = streamTeeProvider{Provider: provider}
	}

	if err := providers.ValidateModel(provider, rp.model); err != nil {
		return err
	}

	prompt, err := readPrompt(pf.prompt, pf.promptFile)
	if err != nil {
		return err
	}

	req := providers.Request{
		Model:     rp.model,
		Messages:  buildRequestMessages(prompt),
		MaxTokens: &pf.maxTokens,
	}
	if pf.hasTemp {
		req.Temperature = &pf.temperature
	}
	if pf.hasTopP {
		req.TopP = &pf.topP
	}
	req.Timeout = &rp.cfg.TimeoutSecs

	collector := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
	recorder := telemetry.NewRecorder(collector, tel)

	run := orchestrator.New(orchestrator.DefaultConfig(), provider, recorder, nil)
	run.Run(ctx, req)

	snapshot := collector.Snapshot()
	if len(snapshot.Raw) == 1 && !snapshot.Raw[0].Success {
		msg := "request failed"
		if snapshot.Raw[0].Error != nil {
			msg = *snapshot.Raw[0].Error
		}
		return fmt.Errorf("profile: %s", msg)
	}

	agg, err := aggregator.Aggregate(snapshot)
	if err != nil {
		return err
	}

	if pf.output != "" {
		out, err := exporters.NewJSONExporter(true).Export(agg)
		if err != nil {
			return err
		}
		return exporters.ExportToFile(pf.output, out)
	}

	return printAggregated(agg)
}
