package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/aggregator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/exporters"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/metrics"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/orchestrator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/telemetry"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

type benchmarkFlags struct {
	profileFlags
	requests    uint64
	concurrency uint64
	rateLimit   float64
	warmup      uint64
	progress    bool
}

// newBenchmarkCommand drives a request template through the
// orchestrator N times with a bounded worker pool, optionally preceded
// by warmup requests whose results never reach the collector.
func newBenchmarkCommand() *cobra.Command {
	var bf benchmarkFlags

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run repeated requests under bounded concurrency and report aggregate latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, bf)
		},
	}

	flagsSet := cmd.Flags()
	flagsSet.StringVar(&bf.provider, "provider", "", "provider to query (openai, anthropic, google, azure-openai, aws-bedrock, generic)")
	flagsSet.StringVar(&bf.model, "model", "", "model name")
	flagsSet.StringVar(&bf.prompt, "prompt", "", "prompt text")
	flagsSet.StringVar(&bf.promptFile, "prompt-file", "", "path to a file containing the prompt")
	flagsSet.StringVar(&bf.apiKey, "api-key", "", "API key (overrides LLM_API_KEY and the provider-specific env var)")
	flagsSet.StringVar(&bf.endpoint, "endpoint", "", "override the provider's default endpoint")
	flagsSet.Uint32Var(&bf.maxTokens, "max-tokens", 1024, "maximum tokens to generate")
	flagsSet.Float32Var(&bf.temperature, "temperature", 0, "sampling temperature")
	flagsSet.Float32Var(&bf.topP, "top-p", 0, "nucleus sampling threshold")
	flagsSet.Uint64Var(&bf.timeout, "timeout", 120, "per-request timeout in seconds")
	flagsSet.StringVar(&bf.output, "output", "", "write the JSON result to this path instead of stdout")

	flagsSet.Uint64Var(&bf.requests, "requests", 10, "total number of requests to issue")
	flagsSet.Uint64Var(&bf.concurrency, "concurrency", 1, "maximum number of in-flight requests")
	flagsSet.Float64Var(&bf.rateLimit, "rate-limit", 0, "requests per second; 0 disables rate limiting")
	flagsSet.Uint64Var(&bf.warmup, "warmup", 0, "number of unmeasured warmup requests to run first")
	flagsSet.BoolVar(&bf.progress, "progress", false, "render a progress bar while requests are in flight")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		bf.hasTemp = flagsSet.Changed("temperature")
		bf.hasTopP = flagsSet.Changed("top-p")
	}

	return cmd
}

func runBenchmark(cmd *cobra.Command, bf benchmarkFlags) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rp, err := resolveProvider(cfg, bf.provider, bf.model, bf.apiKey, bf.endpoint)
	if err != nil {
		return err
	}
	if bf.timeout != 0 {
		rp.cfg.TimeoutSecs = bf.timeout
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

	if err := providers.ValidateModel(provider, rp.model); err != nil {
		return err
	}

	prompt, err := readPrompt(bf.prompt, bf.promptFile)
	if err != nil {
		return err
	}

	req := providers.Request{
		Model:     rp.model,
		Messages:  buildRequestMessages(prompt),
		MaxTokens: &bf.maxTokens,
	}
	if bf.hasTemp {
		req.Temperature = &bf.temperature
	}
	if bf.hasTopP {
		req.TopP = &bf.topP
	}
	req.Timeout = &rp.cfg.TimeoutSecs

	if bf.warmup > 0 {
		warmupCollector := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
		warmupRun := orchestrator.New(orchestrator.Config{
			Concurrency:     intFromUint64(bf.concurrency),
			TotalRequests:   intFromUint64(bf.warmup),
			RateLimit:       bf.rateLimit,
			ShutdownTimeout: 10 * time.Second,
		}, provider, warmupCollector, nil)
		warmupRun.Run(ctx, req)
	}

	sessionID := types.NewSessionId()
	collector := metrics.New(sessionID, metrics.DefaultConfig())
	recorder := telemetry.NewRecorder(collector, tel)

	var reporter orchestrator.ProgressReporter
	if bf.progress {
		reporter = newBarReporter(intFromUint64(bf.requests), fmt.Sprintf("%s/%s", rp.name, rp.model))
	}

	run := orchestrator.New(orchestrator.Config{
		Concurrency:     intFromUint64(bf.concurrency),
		TotalRequests:   intFromUint64(bf.requests),
		RateLimit:       bf.rateLimit,
		ShowProgress:    bf.progress,
		ShutdownTimeout: 10 * time.Second,
	}, provider, recorder, reporter)

	run.Run(ctx, req)

	snapshot := collector.Snapshot()
	agg, err := aggregator.Aggregate(snapshot)
	if err != nil {
		return err
	}

	if bf.output != "" {
		out, err := exporters.NewJSONExporter(true).Export(agg)
		if err != nil {
			return err
		}
		return exporters.ExportToFile(bf.output, out)
	}

	return printAggregated(agg)
}

func intFromUint64(v uint64) int {
	if v > uint64(^uint(0)>>1) {
		return int(^uint(0) >> 1)
	}
	return int(v)
}
