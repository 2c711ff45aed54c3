package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/aggregator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/metrics"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/orchestrator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providers"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/telemetry"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

type compareFlags struct {
	metrics     string
	prompt      string
	promptFile  string
	requests    uint64
	concurrency uint64
	maxTokens   uint32
}

// newCompareCommand runs the same request template against each
// PROVIDER:MODEL target in turn and reports the percentage change of
// every later target relative to the first, which serves as baseline.
func newCompareCommand() *cobra.Command {
	var cf compareFlags

	cmd := &cobra.Command{
		Use:   "compare PROVIDER:MODEL...",
		Short: "Compare latency and throughput across two or more provider/model targets",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, cf, args)
		},
	}

	flagsSet := cmd.Flags()
	flagsSet.StringVar(&cf.metrics, "metrics", "ttft,total,throughput", "comma-separated dimensions to report: ttft,total,throughput,cost")
	flagsSet.StringVar(&cf.prompt, "prompt", "", "prompt text")
	flagsSet.StringVar(&cf.promptFile, "prompt-file", "", "path to a file containing the prompt")
	flagsSet.Uint64Var(&cf.requests, "requests", 5, "requests to issue per target")
	flagsSet.Uint64Var(&cf.concurrency, "concurrency", 1, "maximum in-flight requests per target")
	flagsSet.Uint32Var(&cf.maxTokens, "max-tokens", 1024, "maximum tokens to generate")

	return cmd
}

type compareTarget struct {
	provider string
	model    string
	agg      types.AggregatedMetrics
}

func runCompare(cmd *cobra.Command, cf compareFlags, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prompt, err := readPrompt(cf.prompt, cf.promptFile)
	if err != nil {
		return err
	}

	dims := parseMetricsDims(cf.metrics)

	tel, err := newTelemetryProvider(ctx)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer tel.Shutdown(ctx)

	targets := make([]compareTarget, 0, len(args))
	for _, spec := range args {
		providerName, model, err := splitProviderModel(spec)
		if err != nil {
			return err
		}

		rp, err := resolveProvider(cfg, providerName, model, "", "")
		if err != nil {
			return err
		}

		provider, err := buildProviderWithTelemetry(rp, tel)
		if err != nil {
			return err
		}
		if err := providers.ValidateModel(provider, rp.model); err != nil {
			return err
		}

		req := providers.Request{
			Model:     rp.model,
			Messages:  buildRequestMessages(prompt),
			MaxTokens: &cf.maxTokens,
		}
		req.Timeout = &rp.cfg.TimeoutSecs

		collector := metrics.New(types.NewSessionId(), metrics.DefaultConfig())
		recorder := telemetry.NewRecorder(collector, tel)
		run := orchestrator.New(orchestrator.Config{
			Concurrency:     intFromUint64(cf.concurrency),
			TotalRequests:   intFromUint64(cf.requests),
			ShutdownTimeout: 10 * time.Second,
		}, provider, recorder, nil)
		run.Run(ctx, req)

		agg, err := aggregator.Aggregate(collector.Snapshot())
		if err != nil {
			return fmt.Errorf("compare: target %s produced no metrics: %w", spec, err)
		}

		targets = append(targets, compareTarget{provider: providerName, model: model, agg: agg})
	}

	return printComparison(targets, dims)
}

func splitProviderModel(spec string) (provider, model string, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("compare: target %q must be in PROVIDER:MODEL form", spec)
	}
	return parts[0], parts[1], nil
}

func parseMetricsDims(raw string) []string {
	var dims []string
	for _, d := range strings.Split(raw, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			dims = append(dims, d)
		}
	}
	return dims
}

func printComparison(targets []compareTarget, dims []string) error {
	if flags.jsonOutput {
		return printComparisonJSON(targets)
	}

	baseline := targets[0]
	fmt.Printf("baseline: %s:%s\n", baseline.provider, baseline.model)
	for _, t := range targets[1:] {
		cmp := aggregator.Compare(baseline.agg, t.agg)
		fmt.Printf("\n%s:%s vs baseline\n", t.provider, t.model)
		for _, dim := range dims {
			switch dim {
			case "ttft":
				fmt.Printf("  ttft:       mean %+.1f%%  p95 %+.1f%%\n", cmp.TTFTChange.MeanChangePct, cmp.TTFTChange.P95ChangePct)
			case "total":
				fmt.Printf("  total:      mean %+.1f%%  p95 %+.1f%%\n", cmp.TotalLatencyChange.MeanChangePct, cmp.TotalLatencyChange.P95ChangePct)
			case "throughput":
				fmt.Printf("  throughput: %+.1f%%\n", cmp.ThroughputChangePct)
			case "cost":
				if cmp.CostChangePct != nil {
					fmt.Printf("  cost:       %+.1f%%\n", *cmp.CostChangePct)
				} else {
					fmt.Printf("  cost:       n/a\n")
				}
			}
		}
	}
	return nil
}

func printComparisonJSON(targets []compareTarget) error {
	type entry struct {
		Provider   string                        `json:"provider"`
		Model      string                        `json:"model"`
		Aggregated types.AggregatedMetrics       `json:"aggregated"`
		Comparison *aggregator.MetricsComparison `json:"comparison,omitempty"`
	}

	baseline := targets[0]
	out := make([]entry, 0, len(targets))
	out = append(out, entry{Provider: baseline.provider, Model: baseline.model, Aggregated: baseline.agg})
	for _, t := range targets[1:] {
		cmp := aggregator.Compare(baseline.agg, t.agg)
		out = append(out, entry{Provider: t.provider, Model: t.model, Aggregated: t.agg, Comparison: &cmp})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
