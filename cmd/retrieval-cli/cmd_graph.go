package main

import (
	"github.com/spf13/cobra"
)

var analysisFlag string

var pagerankCmd = &cobra.Command{
	Use:   "pagerank",
	Short: "Return every unit's PageRank score over the dependency graph, highest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "pagerank", map[string]any{
			"limit": limitFlag,
		})
	},
}

var graphAnalysisCmd = &cobra.Command{
	Use:   "graph-analysis",
	Short: "Run structural analysis over the dependency graph: orphans, dead ends, hubs, cycles, or bridges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "graph_analysis", map[string]any{
			"analysis": analysisFlag,
			"limit":    limitFlag,
		})
	},
}

func init() {
	pagerankCmd.Flags().IntVar(&limitFlag, "limit", 0, "maximum results (0: no limit)")

	graphAnalysisCmd.Flags().StringVar(&analysisFlag, "analysis", "all", "orphans, dead_ends, hubs, cycles, bridges, or all")
	graphAnalysisCmd.Flags().IntVar(&limitFlag, "limit", 0, "hub count / bridge sample size (0: default)")
}
