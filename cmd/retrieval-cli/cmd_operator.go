package main

import (
	"github.com/spf13/cobra"
)

var issueFlag string

var pipelineStatusCmd = &cobra.Command{
	Use:   "pipeline-status",
	Short: "Report the aggregated pipeline and subsystem health snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "pipeline_status", map[string]any{})
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Validate the unit catalog against the last embed checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "diagnose", map[string]any{})
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Perform one scoped repair operation, holding the pipeline lock for its duration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "repair", map[string]any{
			"issue":       issueFlag,
			"identifiers": toAnySlice(identifiersFlag),
		})
	},
}

func init() {
	repairCmd.Flags().StringVar(&issueFlag, "issue", "", "stale_units, missing_embeddings, orphaned_vectors, or count_mismatch")
	repairCmd.MarkFlagRequired("issue")
	repairCmd.Flags().StringSliceVar(&identifiersFlag, "identifiers", nil, "identifiers the repair applies to")
}
