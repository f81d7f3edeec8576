// Package main implements retrieval-cli, the operator-facing command
// line wrapper around every tool of the retrieval engine's tool-server
// contract. Each subcommand below calls straight into the same
// toolserver.Registry the stdio server (cmd/retrieval-engine) serves,
// so the two binaries never drift.
//
// File index, mirroring the teacher's (theRebelliousNerd-codenerd)
// cmd/nerd split-by-concern convention:
//
//	main.go           - entry point, rootCmd, global flags, engine bootstrap
//	cmd_retrieval.go  - retrieve, lookup, dependencies, dependents, framework, search, structure, recent_changes
//	cmd_graph.go      - pagerank, graph_analysis
//	cmd_pipeline.go   - extract, embed
//	cmd_operator.go   - pipeline_status, diagnose, repair
//	cmd_feedback.go   - rate_retrieval, report_gap, retrieval_explain, suggest_improvements
//	output.go         - JSON result printing and the §6.3 exit-code mapping
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raildex/retrieval-engine/internal/config"
	"github.com/raildex/retrieval-engine/internal/engine"
	"github.com/raildex/retrieval-engine/internal/observability"
)

var (
	outputDir string
	logLevel  string
	timeout   time.Duration

	eng *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "retrieval-cli",
	Short: "Operator CLI for the codebase retrieval engine",
	Long: `retrieval-cli exposes every tool of the retrieval engine's operator
contract (retrieve, lookup, dependency traversal, search, pipeline
control, feedback) as a scriptable subcommand, returning JSON on stdout
and exiting with the tool-server's own error-kind taxonomy mapped to a
process exit code: 0 success, 1 validation, 2 not found, 3 pipeline
locked, 4 cooldown, 5 degraded backend, 6 internal error.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		engine.ApplySpecEnv()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if outputDir != "" {
			cfg.Extraction.OutputDir = outputDir
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := observability.NewLogger(observability.Config{
			Level:         cfg.Logging.Level,
			Format:        cfg.Logging.Format,
			Output:        os.Stderr,
			SentryEnabled: cfg.Observability.Sentry.Enabled,
		})
		metrics := observability.NewMetricsCollectorWithRegistry("retrieval_cli", noopRegisterer{})

		e, err := engine.Build(cmd.Context(), cfg, logger, metrics)
		if err != nil {
			return fmt.Errorf("build engine: %w", err)
		}
		eng = e
		if timeout == 0 {
			timeout = cfg.Budget.OverallDeadline
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if eng == nil {
			return nil
		}
		return eng.Close(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "extraction output directory (default: OUTPUT_DIR env or ./tmp/codebase_index)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-command deadline (default: budget.overall_deadline)")

	rootCmd.AddCommand(
		retrieveCmd, lookupCmd, dependenciesCmd, dependentsCmd, frameworkCmd, searchCmd, structureCmd, recentChangesCmd,
		pagerankCmd, graphAnalysisCmd,
		extractCmd, embedCmd,
		pipelineStatusCmd, diagnoseCmd, repairCmd,
		rateRetrievalCmd, reportGapCmd, retrievalExplainCmd, suggestImprovementsCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeInternal)
	}
}
