package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"cflp/internal/loader"
	"cflp/internal/logging"
)

var demandCmd = &cobra.Command{
	Use:   "demand <points.json>",
	Short: "Summarize the demand of a points document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := loader.LoadPoints(args[0], logging.Named("loader"))
		if err != nil {
			return err
		}
		s := pts.Summary
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Total demand: %s\n", decimal.NewFromFloat(s.TotalDemand).StringFixed(2))
		fmt.Fprintf(w, "Points with demand: %d\n", s.PointsWithDemand)
		fmt.Fprintf(w, "Points without demand: %d\n", s.PointsWithoutDemand)
		fmt.Fprintf(w, "Candidate locations: %d\n", len(pts.Locations))
		return nil
	},
}
