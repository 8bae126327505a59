package opt

import "sort"

// variableWeight discounts the estimated variable cost against the exact
// fixed-cost-per-unit term.
const variableWeight = 0.1

// Option is a scored (location, tier) pair.
type Option struct {
	Location              int     `json:"location"`
	Tier                  int     `json:"tier"`
	CostPerCapacity       float64 `json:"costPerCapacity"`
	AvgDistance           float64 `json:"avgDistance"`
	EstimatedVariableCost float64 `json:"estimatedVariableCost"`
	Score                 float64 `json:"score"`
}

// RankOptions scores every (location, tier) pair and returns them by
// ascending score, then lower fixed cost, then input order.
func RankOptions(p Problem) []Option {
	opts := make([]Option, 0, len(p.Locations)*len(p.Tiers))
	for j := range p.Locations {
		avg := avgDistance(p, j)
		for k, t := range p.Tiers {
			cpc := t.FixedCost / t.Capacity
			est := avg * p.DistanceCostFactor
			opts = append(opts, Option{
				Location:              j,
				Tier:                  k,
				CostPerCapacity:       cpc,
				AvgDistance:           avg,
				EstimatedVariableCost: est,
				Score:                 cpc + variableWeight*est,
			})
		}
	}
	sort.SliceStable(opts, func(a, b int) bool {
		if opts[a].Score != opts[b].Score {
			return opts[a].Score < opts[b].Score
		}
		return p.Tiers[opts[a].Tier].FixedCost < p.Tiers[opts[b].Tier].FixedCost
	})
	return opts
}

// avgDistance is the unweighted mean distance from location j to every
// demand point, 0 when there are none.
func avgDistance(p Problem, j int) float64 {
	if len(p.Demand) == 0 {
		return 0
	}
	sum := 0.0
	for i := range p.Demand {
		sum += p.Distances.Distance(i, j)
	}
	return sum / float64(len(p.Demand))
}
