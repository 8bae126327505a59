package opt

import (
	"fmt"
	"sort"
)

type assignment struct {
	point int
	qty   float64
}

// openFacility is a location with exactly one tier and the demand it holds.
type openFacility struct {
	loc      int
	tier     int
	capacity float64
	spare    float64
	assigned []assignment
}

func (f *openFacility) load() float64 { return f.capacity - f.spare }

func (f *openFacility) utilization() float64 { return f.load() / f.capacity }

func (f *openFacility) clone() *openFacility {
	c := *f
	c.assigned = append([]assignment(nil), f.assigned...)
	return &c
}

// allocate books qty of point onto f. Overflow is an invariant violation.
func (f *openFacility) allocate(point int, qty float64) {
	if qty > f.spare+eps {
		panic(fmt.Sprintf("opt: assignment overflow at location %d: qty %v > spare %v", f.loc, qty, f.spare))
	}
	f.spare -= qty
	if f.spare < 0 {
		f.spare = 0
	}
	for i := range f.assigned {
		if f.assigned[i].point == point {
			f.assigned[i].qty += qty
			return
		}
	}
	f.assigned = append(f.assigned, assignment{point: point, qty: qty})
}

// ledger tracks unmet demand per point.
type ledger struct {
	rem     []float64
	pending int
}

func newLedger(n int) *ledger { return &ledger{rem: make([]float64, n)} }

func (l *ledger) add(point int, qty float64) {
	if qty <= eps {
		return
	}
	if l.rem[point] <= eps {
		l.pending++
	}
	l.rem[point] += qty
}

// take removes qty from point and returns the amount actually taken.
func (l *ledger) take(point int, qty float64) float64 {
	if qty >= l.rem[point]-eps {
		qty = l.rem[point]
		l.rem[point] = 0
		l.pending--
		return qty
	}
	l.rem[point] -= qty
	return qty
}

func (l *ledger) done() bool { return l.pending == 0 }

func (l *ledger) total() float64 {
	t := 0.0
	for _, r := range l.rem {
		t += r
	}
	return t
}

// state is owned by a single solve call.
type state struct {
	p      Problem
	demand *ledger
	open   map[int]*openFacility
	order  []int   // locations in opening order
	near   [][]int // per-location demand order, built lazily
}

func newState(p Problem) *state {
	s := &state{
		p:      p,
		demand: newLedger(len(p.Demand)),
		open:   make(map[int]*openFacility),
		near:   make([][]int, len(p.Locations)),
	}
	for i, d := range p.Demand {
		s.demand.add(i, d.Demand)
	}
	return s
}

// nearest returns demand point indices by ascending distance to location j,
// ties by point id then input index.
func (s *state) nearest(j int) []int {
	if s.near[j] != nil {
		return s.near[j]
	}
	idx := make([]int, len(s.p.Demand))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := s.p.Distances.Distance(idx[a], j), s.p.Distances.Distance(idx[b], j)
		if da != db {
			return da < db
		}
		return s.p.Demand[idx[a]].ID < s.p.Demand[idx[b]].ID
	})
	s.near[j] = idx
	return idx
}

// fill assigns unmet demand from l to f, nearest points first, until f is
// saturated or l is exhausted. Returns the quantity assigned.
func (s *state) fill(f *openFacility, l *ledger) float64 {
	assigned := 0.0
	for _, i := range s.nearest(f.loc) {
		if f.spare <= eps || l.done() {
			break
		}
		if l.rem[i] <= eps {
			continue
		}
		want := l.rem[i]
		if want > f.spare {
			want = f.spare
		}
		qty := l.take(i, want)
		f.allocate(i, qty)
		assigned += qty
	}
	return assigned
}

func (s *state) newFacility(o Option) *openFacility {
	t := s.p.Tiers[o.Tier]
	return &openFacility{loc: o.Location, tier: o.Tier, capacity: t.Capacity, spare: t.Capacity}
}

func (s *state) markOpen(f *openFacility) {
	s.open[f.loc] = f
	s.order = append(s.order, f.loc)
}

// construct walks the ranked options once, opening each unopened location
// that can take demand and filling it before moving on. Returns the number of
// facilities opened.
func (s *state) construct(ranked []Option) int {
	opened := 0
	for _, o := range ranked {
		if s.demand.done() {
			break
		}
		if _, ok := s.open[o.Location]; ok {
			continue
		}
		f := s.newFacility(o)
		if s.fill(f, s.demand) > 0 {
			s.markOpen(f)
			opened++
		}
	}
	return opened
}

func (s *state) fixedCost() float64 {
	total := 0.0
	for _, f := range s.open {
		total += s.p.Tiers[f.tier].FixedCost
	}
	return total
}
