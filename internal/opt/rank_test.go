package opt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankOptions_Score(t *testing.T) {
	p := Problem{
		Demand:             []DemandPoint{{ID: "a", Demand: 1}, {ID: "b", Demand: 1}},
		Locations:          []Location{{ID: "L1"}},
		Distances:          Matrix{{10}, {30}},
		Tiers:              Catalog{{Name: "t", Capacity: 100, FixedCost: 500}},
		DistanceCostFactor: 2,
	}
	got := RankOptions(p)
	require.Len(t, got, 1)
	o := got[0]
	require.Equal(t, 0, o.Location)
	require.InDelta(t, 5, o.CostPerCapacity, 1e-12)
	require.InDelta(t, 20, o.AvgDistance, 1e-12)
	require.InDelta(t, 40, o.EstimatedVariableCost, 1e-12)
	require.InDelta(t, 9, o.Score, 1e-12)
}

func TestRankOptions_TieBreaks(t *testing.T) {
	p := Problem{
		Demand:    []DemandPoint{{ID: "a", Demand: 1}},
		Locations: []Location{{ID: "L1"}, {ID: "L2"}},
		Distances: Matrix{{4, 4}},
		Tiers: Catalog{
			{Name: "wide", Capacity: 100, FixedCost: 1000},
			{Name: "narrow", Capacity: 50, FixedCost: 500},
		},
		DistanceCostFactor: 1,
	}
	got := RankOptions(p)
	type lt struct{ loc, tier int }
	var order []lt
	for _, o := range got {
		order = append(order, lt{o.Location, o.Tier})
	}
	// equal scores: cheaper tier first, then location order
	require.Equal(t, []lt{{0, 1}, {1, 1}, {0, 0}, {1, 0}}, order)
}

func TestRankOptions_Deterministic(t *testing.T) {
	p := randomProblem(rand.New(rand.NewSource(3)))
	require.Equal(t, RankOptions(p), RankOptions(p))
	require.Len(t, RankOptions(p), len(p.Locations)*len(p.Tiers))
}

func TestRankOptions_NoDemand(t *testing.T) {
	p := Problem{Locations: []Location{{ID: "L1"}}, Tiers: DefaultCatalog(), DistanceCostFactor: 1}
	got := RankOptions(p)
	require.Len(t, got, 3)
	for _, o := range got {
		require.Zero(t, o.AvgDistance)
	}
	// medium and large both cost 200 per unit; medium has the lower fixed cost
	require.Equal(t, []string{"medium", "large", "small"},
		[]string{p.Tiers[got[0].Tier].Name, p.Tiers[got[1].Tier].Name, p.Tiers[got[2].Tier].Name})
}
