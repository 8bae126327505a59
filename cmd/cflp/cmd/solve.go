package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cflp/internal/loader"
	"cflp/internal/logging"
	"cflp/internal/opt"
	"cflp/internal/report"
)

var (
	solveFormat     string
	solveOutput     string
	solveMetric     string
	solveThreshold  float64
	solvePasses     int
	solveFactor     float64
	solveReferences []string
)

var solveCmd = &cobra.Command{
	Use:   "solve <points.json>",
	Short: "Run the constructive heuristic on a points document",
	Long: `Load demand points and candidate sites, build the distance matrix and solve.

With --reference, exact-solver result files in the same JSON shape are loaded
and compared against the heuristic.

Examples:
  cflp solve points.json
  cflp solve --threshold 0.25 --passes 2 points.json
  cflp solve --reference gurobi.json --reference cplex.json points.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveFormat, "format", "f", "text", "output format (text, json)")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "write the solution JSON to this file")
	solveCmd.Flags().StringVar(&solveMetric, "metric", "", "distance metric (euclidean, haversine); default from config")
	solveCmd.Flags().Float64Var(&solveThreshold, "threshold", 0, "utilization below which facilities are removal candidates")
	solveCmd.Flags().IntVar(&solvePasses, "passes", 0, "maximum improvement passes")
	solveCmd.Flags().Float64Var(&solveFactor, "factor", 0, "distance cost factor")
	solveCmd.Flags().StringSliceVarP(&solveReferences, "reference", "r", nil, "reference solution files to compare against")
}

func runSolve(cmd *cobra.Command, args []string) error {
	log := logging.Named("solve")
	pts, err := loader.LoadPoints(args[0], logging.Named("loader"))
	if err != nil {
		return err
	}
	metric := cfg.Solver.Metric
	if solveMetric != "" {
		metric = solveMetric
	}
	dist, err := opt.MatrixFor(metric, pts.Demand, pts.Locations)
	if err != nil {
		return err
	}
	p := opt.Problem{
		Demand:             pts.Demand,
		Locations:          pts.Locations,
		Distances:          dist,
		Tiers:              cfg.Solver.Tiers,
		DistanceCostFactor: cfg.Solver.DistanceCostFactor,
	}
	if solveFactor > 0 {
		p.DistanceCostFactor = solveFactor
	}
	opts := cfg.Solver.Options()
	if solveThreshold > 0 {
		opts.UtilizationThreshold = solveThreshold
	}
	if solvePasses > 0 {
		opts.ImprovePasses = solvePasses
	}
	opts.Logger = logging.Named("opt")

	sol, mx, err := opt.Solve(p, opts)
	if err != nil {
		return err
	}
	log.Info("solved",
		zap.String("status", sol.Status),
		zap.Int("opened", mx.Opened),
		zap.Int("removed", mx.Removed),
		zap.Float64("durationMs", mx.DurationMs))

	if solveOutput != "" {
		if err := writeSolutionFile(solveOutput, sol); err != nil {
			return err
		}
	}
	w := cmd.OutOrStdout()
	switch strings.ToLower(solveFormat) {
	case "json":
		if err := encodeJSON(w, sol); err != nil {
			return err
		}
	case "text":
		report.WriteSolution(w, sol)
	default:
		return fmt.Errorf("unknown format %q", solveFormat)
	}

	if len(solveReferences) > 0 {
		refs, err := loader.LoadSolutions(solveReferences)
		if err != nil {
			return err
		}
		refs[sol.SolverName] = sol
		report.WriteComparison(w, refs)
	}
	return nil
}

func writeSolutionFile(path string, sol opt.Solution) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeJSON(f, sol); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
