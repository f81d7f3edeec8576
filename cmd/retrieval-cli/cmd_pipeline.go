package main

import (
	"github.com/spf13/cobra"
)

var (
	modeFlag        string
	dryRunFlag      bool
	identifiersFlag []string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Re-sync the in-memory unit catalog from the on-disk extraction tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "extract", map[string]any{
			"mode":    modeFlag,
			"dry_run": dryRunFlag,
		})
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Re-embed and upsert units, full or incremental over a given identifier list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "embed", map[string]any{
			"mode":        modeFlag,
			"identifiers": toAnySlice(identifiersFlag),
		})
	},
}

func init() {
	extractCmd.Flags().StringVar(&modeFlag, "mode", "full", "full or incremental")
	extractCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "report the current manifest without reloading")

	embedCmd.Flags().StringVar(&modeFlag, "mode", "full", "full or incremental")
	embedCmd.Flags().StringSliceVar(&identifiersFlag, "identifiers", nil, "identifiers to re-embed (required for incremental)")
}
