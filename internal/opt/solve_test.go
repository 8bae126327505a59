package opt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolve_SingleFacilityCostBreakdown(t *testing.T) {
	p := Problem{
		Demand:             []DemandPoint{{ID: "p1", Demand: 100}, {ID: "p2", Demand: 50}},
		Locations:          []Location{{ID: "L1", X: 3, Y: 4}},
		Distances:          Matrix{{10}, {20}},
		Tiers:              Catalog{{Name: "std", Capacity: 200, FixedCost: 1000}},
		DistanceCostFactor: 1.0,
	}
	sol, m, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusHeuristic, sol.Status)
	require.Len(t, sol.FacilitiesOpened, 1)
	require.Equal(t, OpenedFacility{Location: "L1", Type: "std", Coordinates: [2]float64{3, 4}, FixedCost: 1000}, sol.FacilitiesOpened[0])
	require.InDelta(t, 1000, sol.TotalFixedCost, 1e-9)
	require.InDelta(t, 2000, sol.TotalVariableCost, 1e-9)
	require.InDelta(t, 3000, sol.ObjectiveValue, 1e-9)
	require.Equal(t, []AssignmentEntry{{Facility: "L1", Fraction: 1, AssignedDemand: 100, VariableCost: 1000}}, sol.Assignments["p1"])
	require.Equal(t, []AssignmentEntry{{Facility: "L1", Fraction: 1, AssignedDemand: 50, VariableCost: 1000}}, sol.Assignments["p2"])
	require.Nil(t, sol.Gap)
	require.Equal(t, "heuristic", sol.SolverName)
	require.Equal(t, []Stage{StageRanking, StageConstructing, StageImproving, StageAssembled}, m.Stages)
}

func TestSolve_ExactFitOpensOneFacility(t *testing.T) {
	p := Problem{
		Demand:             []DemandPoint{{ID: "a", Demand: 100}, {ID: "b", Demand: 200}},
		Locations:          []Location{{ID: "near"}, {ID: "far"}},
		Distances:          Matrix{{1, 5}, {2, 5}},
		Tiers:              Catalog{{Name: "t", Capacity: 300, FixedCost: 500}},
		DistanceCostFactor: 1.0,
	}
	sol, m, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Len(t, sol.FacilitiesOpened, 1)
	require.Equal(t, "near", sol.FacilitiesOpened[0].Location)
	require.InDelta(t, 300, FacilityLoad(sol)["near"], 1e-9)
	require.Zero(t, m.Removed)
	require.Equal(t, m.FixedCostBefore, m.FixedCostAfter)
	require.NotContains(t, m.Stages, StageClosing)
}

func TestSolve_DemandAboveCatalogIsInfeasible(t *testing.T) {
	p := Problem{
		Demand:             []DemandPoint{{ID: "a", Demand: 150.5}},
		Locations:          []Location{{ID: "L1"}},
		Distances:          Matrix{{1}},
		Tiers:              Catalog{{Name: "small", Capacity: 100, FixedCost: 10}, {Name: "big", Capacity: 150, FixedCost: 20}},
		DistanceCostFactor: 1.0,
	}
	sol, m, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusInfeasible, sol.Status)
	require.Empty(t, sol.FacilitiesOpened)
	require.Empty(t, sol.Assignments)
	require.Zero(t, sol.ObjectiveValue)
	require.Equal(t, []Stage{StageInfeasible}, m.Stages)
}

func TestSolve_DegenerateInputs(t *testing.T) {
	tiers := DefaultCatalog()

	sol, _, err := Solve(Problem{Locations: []Location{{ID: "L1"}}, Tiers: tiers, DistanceCostFactor: 1}, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusHeuristic, sol.Status)
	require.Empty(t, sol.FacilitiesOpened)
	require.Zero(t, sol.ObjectiveValue)

	sol, _, err = Solve(Problem{Demand: []DemandPoint{{ID: "a", Demand: 1}}, Tiers: tiers, DistanceCostFactor: 1}, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusInfeasible, sol.Status)
}

func TestSolve_ZeroDemandPointHasEmptyAssignments(t *testing.T) {
	p := Problem{
		Demand:             []DemandPoint{{ID: "a", Demand: 10}, {ID: "zero", Demand: 0}},
		Locations:          []Location{{ID: "L1"}},
		Distances:          Matrix{{1}, {0}},
		Tiers:              Catalog{{Name: "t", Capacity: 10, FixedCost: 1}},
		DistanceCostFactor: 1,
	}
	sol, _, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Contains(t, sol.Assignments, "zero")
	require.Empty(t, sol.Assignments["zero"])
	require.Len(t, sol.Assignments["a"], 1)
}

func TestSolve_CloserUpgradesTier(t *testing.T) {
	p := Problem{
		Demand:             []DemandPoint{{ID: "a", Demand: 200}, {ID: "b", Demand: 150}},
		Locations:          []Location{{ID: "L1"}, {ID: "L2"}},
		Distances:          Matrix{{1, 2}, {1, 2}},
		Tiers:              Catalog{{Name: "small", Capacity: 100, FixedCost: 100}, {Name: "large", Capacity: 300, FixedCost: 600}},
		DistanceCostFactor: 1,
	}
	sol, m, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusHeuristic, sol.Status)
	require.Contains(t, m.Stages, StageClosing)
	require.Equal(t, 1, m.Upgraded)
	require.Equal(t, 2, m.Opened)

	types := map[string]string{}
	for _, f := range sol.FacilitiesOpened {
		types[f.Location] = f.Type
	}
	require.Equal(t, map[string]string{"L1": "large", "L2": "small"}, types)
	load := FacilityLoad(sol)
	require.InDelta(t, 250, load["L1"], 1e-9)
	require.InDelta(t, 100, load["L2"], 1e-9)
	requireFeasible(t, p, sol)
}

func TestSolve_RejectsInvalidProblem(t *testing.T) {
	_, _, err := Solve(Problem{Tiers: DefaultCatalog()}, Options{})
	require.ErrorIs(t, err, ErrInvalidProblem)
}

func TestSolve_RandomInstancesStayFeasible(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		p := randomProblem(rng)
		sol, m, err := Solve(p, Options{ImprovePasses: 1 + rng.Intn(3)})
		require.NoError(t, err)
		if p.CatalogCapacity() < p.TotalDemand() {
			require.Equal(t, StatusInfeasible, sol.Status, "iter %d", iter)
			continue
		}
		require.Equal(t, StatusHeuristic, sol.Status, "iter %d", iter)
		require.LessOrEqual(t, m.FixedCostAfter, m.FixedCostBefore+1e-9, "iter %d", iter)
		require.InDelta(t, m.FixedCostAfter, sol.TotalFixedCost, 1e-6)
		requireFeasible(t, p, sol)
	}
}

func TestSolve_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := randomProblem(rng)
	a, _, err := Solve(p, Options{})
	require.NoError(t, err)
	b, _, err := Solve(p, Options{})
	require.NoError(t, err)
	a.ProcessingTime, b.ProcessingTime = 0, 0
	require.Equal(t, a, b)
}

func randomProblem(rng *rand.Rand) Problem {
	n, m := rng.Intn(25), 1+rng.Intn(6)
	p := Problem{
		Tiers: Catalog{
			{Name: "small", Capacity: 50 + float64(rng.Intn(50)), FixedCost: float64(rng.Intn(500))},
			{Name: "medium", Capacity: 120, FixedCost: 700},
			{Name: "large", Capacity: 200 + float64(rng.Intn(100)), FixedCost: 1000 + float64(rng.Intn(500))},
		},
		DistanceCostFactor: 0.5 + rng.Float64(),
	}
	for i := 0; i < n; i++ {
		p.Demand = append(p.Demand, DemandPoint{
			ID:     string(rune('a'+i%26)) + string(rune('0'+i/26)),
			X:      rng.Float64() * 100,
			Y:      rng.Float64() * 100,
			Demand: math.Round(rng.Float64()*80*10) / 10,
		})
	}
	for j := 0; j < m; j++ {
		p.Locations = append(p.Locations, Location{ID: "F" + string(rune('0'+j)), X: rng.Float64() * 100, Y: rng.Float64() * 100})
	}
	p.Distances = EuclideanMatrix(p.Demand, p.Locations)
	return p
}

// requireFeasible checks coverage, capacity, single tier per site and that
// every assignment targets an open facility.
func requireFeasible(t *testing.T, p Problem, sol Solution) {
	t.Helper()
	open := map[string]Tier{}
	for _, f := range sol.FacilitiesOpened {
		_, dup := open[f.Location]
		require.False(t, dup, "facility %s opened twice", f.Location)
		tier, ok := p.Tiers.Lookup(f.Type)
		require.True(t, ok)
		open[f.Location] = tier
	}
	load := map[string]float64{}
	variable := 0.0
	for _, d := range p.Demand {
		entries, ok := sol.Assignments[d.ID]
		require.True(t, ok, "point %s missing", d.ID)
		sum := 0.0
		for _, a := range entries {
			_, isOpen := open[a.Facility]
			require.True(t, isOpen, "point %s assigned to closed %s", d.ID, a.Facility)
			require.Greater(t, a.AssignedDemand, 0.0)
			sum += a.AssignedDemand
			load[a.Facility] += a.AssignedDemand
			variable += a.VariableCost
		}
		require.InDelta(t, d.Demand, sum, 1e-6, "coverage of %s", d.ID)
	}
	for id, l := range load {
		require.LessOrEqual(t, l, open[id].Capacity+1e-6, "capacity of %s", id)
	}
	require.InDelta(t, variable, sol.TotalVariableCost, 1e-6)
	require.InDelta(t, sol.TotalFixedCost+sol.TotalVariableCost, sol.ObjectiveValue, 1e-6)
}
