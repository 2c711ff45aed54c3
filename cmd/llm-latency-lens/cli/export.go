package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/aggregator"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/exporters"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/metrics"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/upstream"
)

type exportFlags struct {
	input  string
	format string
	output string
	pretty bool
}

// newExportCommand reads a test-bench file (§4.9's .json/.jsonl/.csv
// formats) into RequestMetrics, re-aggregates it through the same
// histogram collector a live run would use, and renders it with the
// chosen exporter. This is how a recorded benchmark gets converted
// between formats after the fact.
func newExportCommand() *cobra.Command {
	var ef exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert a recorded metrics file into JSON, CSV, Prometheus, or console output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, ef)
		},
	}

	flagsSet := cmd.Flags()
	flagsSet.StringVar(&ef.input, "input", "", "path to a .json, .jsonl/.ndjson, or .csv metrics file")
	flagsSet.StringVar(&ef.format, "format", "json", "output format: json, csv, prometheus, console")
	flagsSet.StringVar(&ef.output, "output", "", "write the result to this path instead of stdout")
	flagsSet.BoolVar(&ef.pretty, "pretty", false, "pretty-print JSON output")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runExport(cmd *cobra.Command, ef exportFlags) error {
	requests, err := upstream.ReadFile(ef.input)
	if err != nil {
		return err
	}

	agg, err := aggregateRequests(requests)
	if err != nil {
		return err
	}

	var out string
	switch ef.format {
	case "json":
		out, err = exporters.NewJSONExporter(ef.pretty).Export(agg)
	case "csv":
		out, err = exporters.NewCSVExporter().Export(agg)
	case "prometheus":
		out, err = exporters.NewPrometheusExporter("").Export(agg)
	case "console":
		out, err = exporters.NewConsoleExporter(true).Export(agg)
	default:
		return fmt.Errorf("export: unknown format %q (want json, csv, prometheus, or console)", ef.format)
	}
	if err != nil {
		return err
	}

	if ef.output != "" {
		return exporters.ExportToFile(ef.output, out)
	}
	fmt.Print(out)
	if ef.format != "console" {
		fmt.Println()
	}
	return nil
}

// aggregateRequests replays requests through a fresh collector so the
// resulting AggregatedMetrics comes from the same histogram-based
// discipline a live benchmark run would produce, per spec.md §4.6.
func aggregateRequests(requests []types.RequestMetrics) (types.AggregatedMetrics, error) {
	sessionID := types.NewSessionId()
	if len(requests) > 0 {
		sessionID = requests[0].SessionID
	}
	collector := metrics.New(sessionID, metrics.DefaultConfig())
	for _, r := range requests {
		collector.Record(r)
	}
	return aggregator.Aggregate(collector.Snapshot())
}
