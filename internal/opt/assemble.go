package opt

import "sort"

const (
	StatusHeuristic  = "heuristic"
	StatusInfeasible = "infeasible"
)

// OpenedFacility is one entry of Solution.FacilitiesOpened.
type OpenedFacility struct {
	Location    string     `json:"location"`
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	FixedCost   float64    `json:"fixed_cost"`
}

// AssignmentEntry is one facility serving (part of) a demand point.
type AssignmentEntry struct {
	Facility       string  `json:"facility"`
	Fraction       float64 `json:"fraction"`
	AssignedDemand float64 `json:"assigned_demand"`
	VariableCost   float64 `json:"variable_cost"`
}

// ManifestEntry is one demand point served by a facility.
type ManifestEntry struct {
	Point    string  `json:"point"`
	Quantity float64 `json:"quantity"`
	Fraction float64 `json:"fraction"`
}

// Solution has the same shape as the exact solvers' output so reports can
// treat every solver alike. Manifests is absent from exact-solver files; use
// BuildManifests to derive it.
type Solution struct {
	Status            string                       `json:"status"`
	ObjectiveValue    float64                      `json:"objective_value"`
	FacilitiesOpened  []OpenedFacility             `json:"facilities_opened"`
	Assignments       map[string][]AssignmentEntry `json:"assignments"`
	TotalFixedCost    float64                      `json:"total_fixed_cost"`
	TotalVariableCost float64                      `json:"total_variable_cost"`
	ProcessingTime    float64                      `json:"processing_time"`
	Gap               *float64                     `json:"gap"`
	SolverName        string                       `json:"solver_name"`
	Manifests         map[string][]ManifestEntry   `json:"manifests,omitempty"`
}

func infeasibleSolution(solver string) Solution {
	return Solution{
		Status:           StatusInfeasible,
		FacilitiesOpened: []OpenedFacility{},
		Assignments:      map[string][]AssignmentEntry{},
		SolverName:       solver,
	}
}

// assemble reads the solve state into a Solution. It does not mutate s.
func (s *state) assemble(solver string) Solution {
	sol := Solution{
		Status:           StatusHeuristic,
		FacilitiesOpened: make([]OpenedFacility, 0, len(s.order)),
		Assignments:      make(map[string][]AssignmentEntry, len(s.p.Demand)),
		Manifests:        make(map[string][]ManifestEntry, len(s.order)),
		SolverName:       solver,
	}
	for _, d := range s.p.Demand {
		sol.Assignments[d.ID] = []AssignmentEntry{}
	}
	for _, loc := range s.order {
		f := s.open[loc]
		l := s.p.Locations[loc]
		t := s.p.Tiers[f.tier]
		sol.FacilitiesOpened = append(sol.FacilitiesOpened, OpenedFacility{
			Location:    l.ID,
			Type:        t.Name,
			Coordinates: [2]float64{l.X, l.Y},
			FixedCost:   t.FixedCost,
		})
		sol.TotalFixedCost += t.FixedCost

		manifest := make([]ManifestEntry, 0, len(f.assigned))
		for _, a := range f.assigned {
			d := s.p.Demand[a.point]
			vc := s.p.Distances.Distance(a.point, loc) * s.p.DistanceCostFactor * a.qty
			frac := a.qty / d.Demand
			sol.Assignments[d.ID] = append(sol.Assignments[d.ID], AssignmentEntry{
				Facility:       l.ID,
				Fraction:       frac,
				AssignedDemand: a.qty,
				VariableCost:   vc,
			})
			manifest = append(manifest, ManifestEntry{Point: d.ID, Quantity: a.qty, Fraction: frac})
			sol.TotalVariableCost += vc
		}
		sol.Manifests[l.ID] = manifest
	}
	sol.ObjectiveValue = sol.TotalFixedCost + sol.TotalVariableCost
	return sol
}

// BuildManifests groups a solution's assignments by facility. Every opened
// facility gets an entry; points within a manifest are sorted by id.
func BuildManifests(sol Solution) map[string][]ManifestEntry {
	out := make(map[string][]ManifestEntry, len(sol.FacilitiesOpened))
	for _, f := range sol.FacilitiesOpened {
		out[f.Location] = []ManifestEntry{}
	}
	for point, entries := range sol.Assignments {
		for _, a := range entries {
			out[a.Facility] = append(out[a.Facility], ManifestEntry{
				Point:    point,
				Quantity: a.AssignedDemand,
				Fraction: a.Fraction,
			})
		}
	}
	for _, m := range out {
		sort.Slice(m, func(i, j int) bool { return m[i].Point < m[j].Point })
	}
	return out
}

// FacilityLoad sums the demand a solution assigns to each facility.
func FacilityLoad(sol Solution) map[string]float64 {
	out := make(map[string]float64, len(sol.FacilitiesOpened))
	for _, entries := range sol.Assignments {
		for _, a := range entries {
			out[a.Facility] += a.AssignedDemand
		}
	}
	return out
}
