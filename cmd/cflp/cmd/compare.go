package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"cflp/internal/loader"
	"cflp/internal/report"
)

var compareFormat string

var compareCmd = &cobra.Command{
	Use:   "compare <solution.json>...",
	Short: "Compare stored solver results for the same instance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sols, err := loader.LoadSolutions(args)
		if err != nil {
			return err
		}
		if strings.ToLower(compareFormat) == "json" {
			return encodeJSON(cmd.OutOrStdout(), report.Compare(sols))
		}
		report.WriteComparison(cmd.OutOrStdout(), sols)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", "text", "output format (text, json)")
}
