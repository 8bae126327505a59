package opt

import (
	"errors"
	"fmt"
	"math"
)

// eps is the tolerance below which a demand or capacity quantity counts as zero.
const eps = 1e-6

// ErrInvalidProblem is wrapped by every input validation failure.
var ErrInvalidProblem = errors.New("invalid problem")

// DemandPoint is a node whose demand must be fully covered.
type DemandPoint struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Demand float64 `json:"demand"`
}

// Location is a candidate facility site.
type Location struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Problem is one CFLP instance. Distances is indexed (demand point, location).
type Problem struct {
	Demand             []DemandPoint
	Locations          []Location
	Distances          DistanceOracle
	Tiers              Catalog
	DistanceCostFactor float64
}

// TotalDemand sums the demand of every point.
func (p Problem) TotalDemand() float64 {
	total := 0.0
	for _, d := range p.Demand {
		total += d.Demand
	}
	return total
}

// CatalogCapacity is the most capacity any plan can open: one tier per
// location, so each location contributes its largest tier.
func (p Problem) CatalogCapacity() float64 {
	return float64(len(p.Locations)) * p.Tiers.MaxCapacity()
}

// Validate checks the input contract. Empty demand or location sets are valid.
func (p Problem) Validate() error {
	if p.DistanceCostFactor <= 0 || math.IsNaN(p.DistanceCostFactor) {
		return fmt.Errorf("%w: distance cost factor must be > 0, got %v", ErrInvalidProblem, p.DistanceCostFactor)
	}
	if err := p.Tiers.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(p.Demand))
	for i, d := range p.Demand {
		if d.ID == "" {
			return fmt.Errorf("%w: demand point %d has no id", ErrInvalidProblem, i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: duplicate demand point id %q", ErrInvalidProblem, d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.Demand < 0 || math.IsNaN(d.Demand) || math.IsInf(d.Demand, 0) {
			return fmt.Errorf("%w: demand point %q has invalid demand %v", ErrInvalidProblem, d.ID, d.Demand)
		}
	}
	seen = make(map[string]struct{}, len(p.Locations))
	for j, l := range p.Locations {
		if l.ID == "" {
			return fmt.Errorf("%w: location %d has no id", ErrInvalidProblem, j)
		}
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("%w: duplicate location id %q", ErrInvalidProblem, l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	if len(p.Demand) > 0 && len(p.Locations) > 0 {
		if p.Distances == nil {
			return fmt.Errorf("%w: missing distance oracle", ErrInvalidProblem)
		}
		if m, ok := p.Distances.(Matrix); ok {
			if err := m.checkShape(len(p.Demand), len(p.Locations)); err != nil {
				return err
			}
		}
	}
	return nil
}
