package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func validProblem() Problem {
	return Problem{
		Demand:             []DemandPoint{{ID: "a", Demand: 5}, {ID: "b", Demand: 7}},
		Locations:          []Location{{ID: "L1"}},
		Distances:          Matrix{{1}, {2}},
		Tiers:              DefaultCatalog(),
		DistanceCostFactor: 1,
	}
}

func TestProblemValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *Problem)
		ok     bool
	}{
		{"valid", func(p *Problem) {}, true},
		{"zero factor", func(p *Problem) { p.DistanceCostFactor = 0 }, false},
		{"nan factor", func(p *Problem) { p.DistanceCostFactor = math.NaN() }, false},
		{"no tiers is fine", func(p *Problem) { p.Tiers = nil }, true},
		{"unnamed tier", func(p *Problem) { p.Tiers = Catalog{{Capacity: 1}} }, false},
		{"duplicate tier", func(p *Problem) { p.Tiers = Catalog{{Name: "x", Capacity: 1}, {Name: "x", Capacity: 2}} }, false},
		{"zero capacity", func(p *Problem) { p.Tiers = Catalog{{Name: "x"}} }, false},
		{"negative fixed cost", func(p *Problem) { p.Tiers = Catalog{{Name: "x", Capacity: 1, FixedCost: -1}} }, false},
		{"empty point id", func(p *Problem) { p.Demand[0].ID = "" }, false},
		{"duplicate point id", func(p *Problem) { p.Demand[1].ID = "a" }, false},
		{"negative demand", func(p *Problem) { p.Demand[0].Demand = -1 }, false},
		{"infinite demand", func(p *Problem) { p.Demand[0].Demand = math.Inf(1) }, false},
		{"duplicate location", func(p *Problem) { p.Locations = append(p.Locations, Location{ID: "L1"}) }, false},
		{"missing oracle", func(p *Problem) { p.Distances = nil }, false},
		{"short matrix", func(p *Problem) { p.Distances = Matrix{{1}} }, false},
		{"ragged matrix", func(p *Problem) { p.Distances = Matrix{{1}, {1, 2}} }, false},
		{"negative distance", func(p *Problem) { p.Distances = Matrix{{1}, {-2}} }, false},
		{"no demand", func(p *Problem) { p.Demand = nil; p.Distances = nil }, true},
		{"no locations", func(p *Problem) { p.Locations = nil; p.Distances = nil }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProblem()
			tc.mutate(&p)
			err := p.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidProblem)
		})
	}
}

func TestCatalogCapacityUsesLargestTierPerLocation(t *testing.T) {
	p := validProblem()
	p.Locations = []Location{{ID: "L1"}, {ID: "L2"}}
	require.Equal(t, 1400.0, p.CatalogCapacity())
	require.Equal(t, 12.0, p.TotalDemand())
	tier, ok := p.Tiers.Lookup("medium")
	require.True(t, ok)
	require.Equal(t, 550.0, tier.Capacity)
	_, ok = p.Tiers.Lookup("huge")
	require.False(t, ok)
}

func TestDistanceMatrices(t *testing.T) {
	pts := []DemandPoint{{ID: "a", X: 0, Y: 0}}
	locs := []Location{{ID: "L1", X: 3, Y: 4}, {ID: "L2", X: 0, Y: 1}}
	require.Equal(t, Matrix{{5, 1}}, EuclideanMatrix(pts, locs))

	// one degree of latitude along a meridian
	h := HaversineMatrix(pts, locs)
	require.InDelta(t, 111195, h[0][1], 1)

	m, err := MatrixFor("", pts, locs)
	require.NoError(t, err)
	require.Equal(t, 5.0, m.Distance(0, 0))
	_, err = MatrixFor("manhattan", pts, locs)
	require.ErrorIs(t, err, ErrInvalidProblem)
}

func TestBuildManifestsMatchesAssembledManifests(t *testing.T) {
	p := validProblem()
	p.Tiers = Catalog{{Name: "t", Capacity: 8, FixedCost: 1}}
	p.Locations = []Location{{ID: "L1"}, {ID: "L2"}}
	p.Distances = Matrix{{1, 2}, {1, 2}}
	sol, _, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Len(t, sol.FacilitiesOpened, 2)

	derived := BuildManifests(sol)
	require.Equal(t, sol.Manifests, derived)
	require.Equal(t, []ManifestEntry{{Point: "a", Quantity: 5, Fraction: 1}, {Point: "b", Quantity: 3, Fraction: 3.0 / 7}}, derived["L1"])
	require.Equal(t, []ManifestEntry{{Point: "b", Quantity: 4, Fraction: 4.0 / 7}}, derived["L2"])
}
