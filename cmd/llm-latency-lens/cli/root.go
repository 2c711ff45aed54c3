// Package cli wires the cobra subcommand tree (profile, benchmark,
// compare, validate, export) to internal/config, internal/providers,
// internal/orchestrator, internal/metrics, internal/aggregator,
// internal/exporters, internal/upstream, and
// internal/telemetry. This is the presentation layer: progress bars,
// color, and flag parsing live here so the core packages never import
// a terminal UI library.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags holds the root command's persistent flags, read by every
// subcommand.
type globalFlags struct {
	jsonOutput bool
	quiet      bool
	verbosity  int
	configPath string

	telemetryEnabled  bool
	telemetryExporter string
	otlpEndpoint      string
}

var flags globalFlags

// Execute builds and runs the command tree, returning the process exit
// code: 0 on success, 1 on any reported error, matching spec.md §6.
func Execute() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		if !flags.quiet {
			printErrorChain(os.Stderr, err)
		}
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "llm-latency-lens",
		Short:         "Measure streaming LLM endpoint latency, throughput, and cost",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(flags.verbosity)
		},
	}

	root.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "emit machine-readable JSON instead of a console report")
	root.PersistentFlags().BoolVar(&flags.quiet, "quiet", false, "suppress error-chain output on stderr")
	root.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a TOML or YAML config file")
	root.PersistentFlags().BoolVar(&flags.telemetryEnabled, "telemetry", false, "mirror request metrics into OpenTelemetry spans and instruments")
	root.PersistentFlags().StringVar(&flags.telemetryExporter, "telemetry-exporter", "stdout", "telemetry exporter: stdout, otlp-grpc, or otlp-http")
	root.PersistentFlags().StringVar(&flags.otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint, used when --telemetry-exporter is otlp-grpc or otlp-http")

	root.AddCommand(newProfileCommand())
	root.AddCommand(newBenchmarkCommand())
	root.AddCommand(newCompareCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newExportCommand())

	return root
}

// configureLogging raises the default slog level (Warn) by one step per
// -v, capping at Debug. CLI result output itself never goes through
// slog: that stays on fmt/stdout per spec.md §7, matching how the
// teacher keeps operational logging and command output on separate
// channels.
func configureLogging(verbosity int) {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// printErrorChain renders err and every wrapped cause, one per line,
// with a "Caused by:" lead-in after the first — the interactive-mode
// rendering spec.md §7 requires.
func printErrorChain(w *os.File, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			break
		}
		cause := u.Unwrap()
		if cause == nil {
			break
		}
		fmt.Fprintf(w, "Caused by: %v\n", cause)
		err = cause
	}
}
