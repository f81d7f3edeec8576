package main

import (
	"github.com/spf13/cobra"
)

var (
	ratingFlag             string
	missingFlag            []string
	notesFlag              string
	descriptionFlag        string
	expectedTypeFlag       string
	expectedIdentifierFlag string
	queryFlag              string
)

var rateRetrievalCmd = &cobra.Command{
	Use:   "rate-retrieval",
	Short: "Record an operator's rating of a retrieval result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "rate_retrieval", map[string]any{
			"query":   queryFlag,
			"rating":  ratingFlag,
			"missing": toAnySlice(missingFlag),
			"notes":   notesFlag,
		})
	},
}

var reportGapCmd = &cobra.Command{
	Use:   "report-gap",
	Short: "Record a retrieval gap: something expected but not returned",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "report_gap", map[string]any{
			"description":         descriptionFlag,
			"query":               queryFlag,
			"expected_type":       expectedTypeFlag,
			"expected_identifier": expectedIdentifierFlag,
		})
	},
}

var retrievalExplainCmd = &cobra.Command{
	Use:   "retrieval-explain <query>",
	Short: "Run retrieval with the full stage trace and record it for gap analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "retrieval_explain", map[string]any{
			"query":  args[0],
			"budget": budgetFlag,
		})
	},
}

var suggestImprovementsCmd = &cobra.Command{
	Use:   "suggest-improvements",
	Short: "Scan the trailing feedback window for prioritized quality-gap signals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "suggest_improvements", map[string]any{})
	},
}

func init() {
	rateRetrievalCmd.Flags().StringVar(&queryFlag, "query", "", "the query being rated")
	rateRetrievalCmd.MarkFlagRequired("query")
	rateRetrievalCmd.Flags().StringVar(&ratingFlag, "rating", "", "helpful, partial, unhelpful, or wrong")
	rateRetrievalCmd.MarkFlagRequired("rating")
	rateRetrievalCmd.Flags().StringSliceVar(&missingFlag, "missing", nil, "identifiers expected but absent from the result")
	rateRetrievalCmd.Flags().StringVar(&notesFlag, "notes", "", "free-text notes")

	reportGapCmd.Flags().StringVar(&descriptionFlag, "description", "", "what was expected but missing")
	reportGapCmd.MarkFlagRequired("description")
	reportGapCmd.Flags().StringVar(&queryFlag, "query", "", "the query that surfaced the gap")
	reportGapCmd.Flags().StringVar(&expectedTypeFlag, "expected-type", "", "the unit type that was expected")
	reportGapCmd.Flags().StringVar(&expectedIdentifierFlag, "expected-identifier", "", "the identifier that was expected")

	retrievalExplainCmd.Flags().IntVar(&budgetFlag, "budget", 0, "token budget (0: use default)")
}
