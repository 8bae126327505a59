// Package report renders solver results as plain text.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"cflp/internal/opt"
)

// maxListedPoints caps the demand points printed per facility.
const maxListedPoints = 15

var rule = strings.Repeat("=", 80)
var thin = strings.Repeat("-", 80)

func money(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

func qty(v float64) string { return decimal.NewFromFloat(v).StringFixed(1) }

// WriteSolution prints status, costs and a per-facility breakdown.
func WriteSolution(w io.Writer, sol opt.Solution) {
	name := sol.SolverName
	if name == "" {
		name = "solver"
	}
	fmt.Fprintf(w, "\n%s\nCFLP SOLUTION - %s\n%s\n", rule, strings.ToUpper(name), rule)
	fmt.Fprintf(w, "Status: %s\n", orNA(sol.Status))
	fmt.Fprintf(w, "Objective value: %s\n", money(sol.ObjectiveValue))
	fmt.Fprintf(w, "Processing time: %.3f s\n", sol.ProcessingTime)
	if sol.Gap == nil {
		fmt.Fprintln(w, "Optimality gap: N/A (heuristic)")
	} else {
		fmt.Fprintf(w, "Optimality gap: %.4f%%\n", *sol.Gap)
	}
	fmt.Fprintf(w, "Total fixed cost: %s\n", money(sol.TotalFixedCost))
	fmt.Fprintf(w, "Total variable cost: %s\n", money(sol.TotalVariableCost))

	if len(sol.FacilitiesOpened) == 0 {
		fmt.Fprintf(w, "\nFacilities opened: 0 (infeasible or no facilities)\n%s\n", thin)
		fmt.Fprintf(w, "\n%s\n", rule)
		return
	}
	fmt.Fprintf(w, "\nFacilities opened: %d\n%s\n", len(sol.FacilitiesOpened), thin)

	manifests := sol.Manifests
	if manifests == nil {
		manifests = opt.BuildManifests(sol)
	}
	varCost := map[string]float64{}
	for _, entries := range sol.Assignments {
		for _, a := range entries {
			varCost[a.Facility] += a.VariableCost
		}
	}
	for _, f := range sol.FacilitiesOpened {
		m := manifests[f.Location]
		covered := 0.0
		for _, e := range m {
			covered += e.Quantity
		}
		fmt.Fprintf(w, "\n  - Location: %s | Type: %s | Coordinates: (%g, %g) | Fixed cost: %s\n",
			f.Location, f.Type, f.Coordinates[0], f.Coordinates[1], money(f.FixedCost))
		fmt.Fprintf(w, "    Covered demand: %s\n", money(covered))
		fmt.Fprintf(w, "    Variable cost: %s\n", money(varCost[f.Location]))
		fmt.Fprintf(w, "    Demand points served: %d\n", len(m))
		if len(m) == 0 {
			continue
		}
		shown := m
		if len(shown) > maxListedPoints {
			shown = shown[:maxListedPoints]
		}
		parts := make([]string, 0, len(shown)+1)
		for _, e := range shown {
			parts = append(parts, fmt.Sprintf("%s(%s)", e.Point, qty(e.Quantity)))
		}
		if extra := len(m) - len(shown); extra > 0 {
			parts = append(parts, fmt.Sprintf("... (+%d more)", extra))
		}
		fmt.Fprintf(w, "    Demand points: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "\n%s\n", rule)
}

// Comparison summarizes several solver results for the same instance.
type Comparison struct {
	Solvers     []string           `json:"solvers"`
	Best        string             `json:"best,omitempty"`
	BestValue   float64            `json:"bestValue"`
	Fastest     string             `json:"fastest,omitempty"`
	Slowest     string             `json:"slowest,omitempty"`
	Speedup     *float64           `json:"speedup,omitempty"`
	PercentDiff map[string]float64 `json:"percentDiff"`
	Facilities  map[string]int     `json:"facilities"`
}

// Compare ranks solutions by objective and processing time. Infeasible
// results keep their row but never win on objective.
func Compare(sols map[string]opt.Solution) Comparison {
	c := Comparison{PercentDiff: map[string]float64{}, Facilities: map[string]int{}}
	for name := range sols {
		c.Solvers = append(c.Solvers, name)
	}
	sort.Strings(c.Solvers)
	for _, name := range c.Solvers {
		s := sols[name]
		c.Facilities[name] = len(s.FacilitiesOpened)
		if s.Status != opt.StatusInfeasible && (c.Best == "" || s.ObjectiveValue < c.BestValue) {
			c.Best, c.BestValue = name, s.ObjectiveValue
		}
		if c.Fastest == "" || s.ProcessingTime < sols[c.Fastest].ProcessingTime {
			c.Fastest = name
		}
		if c.Slowest == "" || s.ProcessingTime > sols[c.Slowest].ProcessingTime {
			c.Slowest = name
		}
	}
	if len(c.Solvers) > 1 && sols[c.Fastest].ProcessingTime > 1e-6 {
		v := sols[c.Slowest].ProcessingTime / sols[c.Fastest].ProcessingTime
		c.Speedup = &v
	}
	if c.Best != "" {
		best := decimal.NewFromFloat(c.BestValue)
		for _, name := range c.Solvers {
			s := sols[name]
			if name == c.Best || s.Status == opt.StatusInfeasible {
				continue
			}
			pct := 0.0
			if !best.IsZero() {
				pct, _ = decimal.NewFromFloat(s.ObjectiveValue).Sub(best).Div(best).Mul(decimal.NewFromInt(100)).Round(4).Float64()
			}
			c.PercentDiff[name] = pct
		}
	}
	return c
}

// WriteComparison prints the metrics table and the analyses of Compare.
func WriteComparison(w io.Writer, sols map[string]opt.Solution) {
	fmt.Fprintf(w, "\n%s\nSOLVER COMPARISON\n%s\n", rule, rule)
	if len(sols) == 0 {
		fmt.Fprintf(w, "No valid solutions to compare.\n%s\n", rule)
		return
	}
	c := Compare(sols)

	fmt.Fprintf(w, "\nMetrics by solver:\n%s\n", thin)
	fmt.Fprintf(w, "%-15s %-25s %-15s %-12s %-12s\n", "Solver", "Status", "Objective", "Time(s)", "Gap(%)")
	fmt.Fprintln(w, thin)
	for _, name := range c.Solvers {
		s := sols[name]
		fmt.Fprintf(w, "%-15s %-25s %-15s %-12s %-12s\n", name, orNA(s.Status), money(s.ObjectiveValue),
			fmt.Sprintf("%.3f", s.ProcessingTime), gapString(s.Gap))
	}
	fmt.Fprintln(w, thin)

	fmt.Fprintf(w, "\nPerformance:\n%s\n", thin)
	fmt.Fprintf(w, "Fastest: %s (%.3fs)\n", c.Fastest, sols[c.Fastest].ProcessingTime)
	fmt.Fprintf(w, "Slowest: %s (%.3fs)\n", c.Slowest, sols[c.Slowest].ProcessingTime)
	if len(c.Solvers) > 1 {
		if c.Speedup != nil {
			fmt.Fprintf(w, "Speedup: %.2fx\n", *c.Speedup)
		} else {
			fmt.Fprintln(w, "Speedup: N/A (fastest time too close to zero)")
		}
	}

	fmt.Fprintf(w, "\nSolution quality:\n%s\n", thin)
	if c.Best != "" {
		fmt.Fprintf(w, "Best solution: %s (objective = %s)\n", c.Best, money(c.BestValue))
		for _, name := range c.Solvers {
			pct, ok := c.PercentDiff[name]
			if !ok {
				continue
			}
			diff := decimal.NewFromFloat(sols[name].ObjectiveValue).Sub(decimal.NewFromFloat(c.BestValue))
			fmt.Fprintf(w, "  %s: %s (difference: %s%s, %+.2f%%)\n", name, money(sols[name].ObjectiveValue),
				sign(diff), diff.StringFixed(2), pct)
		}
	}

	fmt.Fprintf(w, "\nOptimality gap:\n%s\n", thin)
	anyGap := false
	for _, name := range c.Solvers {
		g := sols[name].Gap
		if g == nil {
			continue
		}
		anyGap = true
		if *g == 0 {
			fmt.Fprintf(w, "  %s: optimal (gap = 0%%)\n", name)
		} else {
			fmt.Fprintf(w, "  %s: gap = %.4f%%\n", name, *g)
		}
	}
	if !anyGap {
		fmt.Fprintln(w, "  No gap available (heuristic only or non-optimal solvers)")
	}

	fmt.Fprintf(w, "\nFacilities:\n%s\n", thin)
	for _, name := range c.Solvers {
		fmt.Fprintf(w, "  %s: %d facilities opened\n", name, c.Facilities[name])
	}
	fmt.Fprintf(w, "\n%s\n", rule)
}

func gapString(g *float64) string {
	switch {
	case g == nil:
		return "N/A"
	case math.IsInf(*g, 0):
		return "Inf"
	default:
		return fmt.Sprintf("%.4f", *g)
	}
}

func sign(d decimal.Decimal) string {
	if d.IsNegative() {
		return ""
	}
	return "+"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
