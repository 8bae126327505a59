package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cflp/internal/opt"
)

func heuristicSolution(t *testing.T, points int) opt.Solution {
	t.Helper()
	p := opt.Problem{
		Locations:          []opt.Location{{ID: "C1", X: 1, Y: 2}},
		Tiers:              opt.Catalog{{Name: "big", Capacity: 1000, FixedCost: 500}},
		DistanceCostFactor: 1,
	}
	for i := 0; i < points; i++ {
		p.Demand = append(p.Demand, opt.DemandPoint{ID: fmt.Sprintf("p%02d", i), X: float64(i), Demand: 10})
	}
	p.Distances = opt.EuclideanMatrix(p.Demand, p.Locations)
	sol, _, err := opt.Solve(p, opt.Options{})
	require.NoError(t, err)
	return sol
}

func TestWriteSolution(t *testing.T) {
	var buf bytes.Buffer
	WriteSolution(&buf, heuristicSolution(t, 18))
	out := buf.String()
	require.Contains(t, out, "CFLP SOLUTION - HEURISTIC")
	require.Contains(t, out, "Status: heuristic")
	require.Contains(t, out, "Optimality gap: N/A (heuristic)")
	require.Contains(t, out, "Location: C1 | Type: big | Coordinates: (1, 2) | Fixed cost: 500.00")
	require.Contains(t, out, "Covered demand: 180.00")
	require.Contains(t, out, "Demand points served: 18")
	require.Contains(t, out, "... (+3 more)")
}

func TestWriteSolution_Infeasible(t *testing.T) {
	var buf bytes.Buffer
	WriteSolution(&buf, opt.Solution{Status: opt.StatusInfeasible, SolverName: "heuristic"})
	require.Contains(t, buf.String(), "Facilities opened: 0")
}

func TestCompare(t *testing.T) {
	zero := 0.0
	sols := map[string]opt.Solution{
		"Heuristic": {Status: "heuristic", ObjectiveValue: 1100, ProcessingTime: 0.01, FacilitiesOpened: make([]opt.OpenedFacility, 3)},
		"Gurobi":    {Status: "optimal", ObjectiveValue: 1000, ProcessingTime: 2, Gap: &zero, FacilitiesOpened: make([]opt.OpenedFacility, 2)},
		"Broken":    {Status: opt.StatusInfeasible, ProcessingTime: 0.5},
	}
	c := Compare(sols)
	require.Equal(t, []string{"Broken", "Gurobi", "Heuristic"}, c.Solvers)
	require.Equal(t, "Gurobi", c.Best)
	require.Equal(t, "Heuristic", c.Fastest)
	require.Equal(t, "Gurobi", c.Slowest)
	require.NotNil(t, c.Speedup)
	require.InDelta(t, 200, *c.Speedup, 1e-9)
	require.Equal(t, map[string]float64{"Heuristic": 10}, c.PercentDiff)
	require.Equal(t, 3, c.Facilities["Heuristic"])

	var buf bytes.Buffer
	WriteComparison(&buf, sols)
	out := buf.String()
	require.Contains(t, out, "Best solution: Gurobi (objective = 1000.00)")
	require.Contains(t, out, "Heuristic: 1100.00 (difference: +100.00, +10.00%)")
	require.Contains(t, out, "Gurobi: optimal (gap = 0%)")
	require.Contains(t, out, "Speedup: 200.00x")
	require.Equal(t, 1, strings.Count(out, "SOLVER COMPARISON"))
}

func TestWriteComparison_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteComparison(&buf, nil)
	require.Contains(t, buf.String(), "No valid solutions to compare.")
}
