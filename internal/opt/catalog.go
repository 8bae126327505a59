package opt

import (
	"fmt"
	"math"
)

// Tier is a facility size class.
type Tier struct {
	Name      string  `json:"name" yaml:"name"`
	Capacity  float64 `json:"capacity" yaml:"capacity"`
	FixedCost float64 `json:"fixed_cost" yaml:"fixed_cost"`
}

// Catalog is the ordered set of tiers offered at every location. Its order is
// the tie-break order of the ranker.
type Catalog []Tier

// DefaultCatalog mirrors the small/medium/large cafeteria tiers of the
// reference deployment.
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: "small", Capacity: 370, FixedCost: 90000},
		{Name: "medium", Capacity: 550, FixedCost: 110000},
		{Name: "large", Capacity: 700, FixedCost: 140000},
	}
}

// Validate rejects tiers without a name, duplicate names, non-positive
// capacity and negative fixed cost.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for i, t := range c {
		if t.Name == "" {
			return fmt.Errorf("%w: tier %d has no name", ErrInvalidProblem, i)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: duplicate tier %q", ErrInvalidProblem, t.Name)
		}
		seen[t.Name] = struct{}{}
		if !(t.Capacity > 0) || math.IsInf(t.Capacity, 0) {
			return fmt.Errorf("%w: tier %q capacity must be > 0, got %v", ErrInvalidProblem, t.Name, t.Capacity)
		}
		if t.FixedCost < 0 || math.IsNaN(t.FixedCost) {
			return fmt.Errorf("%w: tier %q fixed cost must be >= 0, got %v", ErrInvalidProblem, t.Name, t.FixedCost)
		}
	}
	return nil
}

// MaxCapacity returns the largest tier capacity, or 0 for an empty catalog.
func (c Catalog) MaxCapacity() float64 {
	best := 0.0
	for _, t := range c {
		if t.Capacity > best {
			best = t.Capacity
		}
	}
	return best
}

// Lookup returns the tier with the given name.
func (c Catalog) Lookup(name string) (Tier, bool) {
	for _, t := range c {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}
