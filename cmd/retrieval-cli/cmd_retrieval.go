package main

import (
	"github.com/spf13/cobra"
)

var (
	budgetFlag     int
	depthFlag      int
	limitFlag      int
	typeFlag       string
	gemFlag        string
	detailFlag     string
	keywordsFlag   []string
	fieldsFlag     []string
	prevRetrieved  []string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Retrieve a budgeted, ranked context for a natural-language query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "retrieve", map[string]any{
			"query":                args[0],
			"budget":               budgetFlag,
			"previously_retrieved": toAnySlice(prevRetrieved),
		})
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <identifier>",
	Short: "Fetch one identifier directly at full detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "lookup", map[string]any{
			"identifier": args[0],
			"budget":     budgetFlag,
		})
	},
}

var dependenciesCmd = &cobra.Command{
	Use:   "dependencies <identifier>",
	Short: "Traverse forward dependency edges from an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "dependencies", map[string]any{
			"identifier": args[0],
			"depth":      depthFlag,
		})
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <identifier>",
	Short: "Traverse reverse dependency edges from an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "dependents", map[string]any{
			"identifier": args[0],
			"depth":      depthFlag,
		})
	},
}

var frameworkCmd = &cobra.Command{
	Use:   "framework <concept>",
	Short: "Explain what a framework or gem provides for a concept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "framework", map[string]any{
			"concept": args[0],
			"gem":     gemFlag,
			"budget":  budgetFlag,
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword> [keyword...]",
	Short: "Keyword search over indexed identifier, method, association, column, and route fields",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "search", map[string]any{
			"keywords": toAnySlice(args),
			"fields":   toAnySlice(fieldsFlag),
			"limit":    limitFlag,
		})
	},
}

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Return a unit/type-level catalog sample (summary or full)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "structure", map[string]any{
			"detail": detailFlag,
		})
	},
}

var recentChangesCmd = &cobra.Command{
	Use:   "recent-changes",
	Short: "List the most recently modified units, optionally filtered by type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "recent_changes", map[string]any{
			"limit": limitFlag,
			"type":  typeFlag,
		})
	},
}

func toAnySlice(s []string) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func init() {
	retrieveCmd.Flags().IntVar(&budgetFlag, "budget", 0, "token budget (0: use default)")
	retrieveCmd.Flags().StringSliceVar(&prevRetrieved, "previously-retrieved", nil, "identifiers to exclude from this round")

	lookupCmd.Flags().IntVar(&budgetFlag, "budget", 0, "token budget (0: use default)")

	dependenciesCmd.Flags().IntVar(&depthFlag, "depth", 1, "traversal depth")
	dependentsCmd.Flags().IntVar(&depthFlag, "depth", 1, "traversal depth")

	frameworkCmd.Flags().StringVar(&gemFlag, "gem", "", "gem name (default: rails itself)")
	frameworkCmd.Flags().IntVar(&budgetFlag, "budget", 0, "token budget (0: use default)")

	searchCmd.Flags().StringSliceVar(&fieldsFlag, "fields", nil, "fields to search (default: all keyword fields)")
	searchCmd.Flags().IntVar(&limitFlag, "limit", 20, "maximum results")

	structureCmd.Flags().StringVar(&detailFlag, "detail", "summary", "summary or full")

	recentChangesCmd.Flags().IntVar(&limitFlag, "limit", 20, "maximum results")
	recentChangesCmd.Flags().StringVar(&typeFlag, "type", "", "filter by unit type")
}
