package opt

import "sort"

// improve runs up to passes consolidation passes over the open set and
// returns the number of facilities removed. A pass that removes nothing ends
// the loop early.
func (s *state) improve(threshold float64, passes int) int {
	removed := 0
	for pass := 0; pass < passes; pass++ {
		n := 0
		for _, loc := range s.candidates(threshold) {
			f, ok := s.open[loc]
			if !ok || f.utilization() >= threshold {
				continue
			}
			if s.p.Tiers[f.tier].FixedCost <= 0 {
				continue
			}
			if s.tryRemove(f) {
				n++
			}
		}
		removed += n
		if n == 0 {
			break
		}
	}
	return removed
}

// candidates lists open locations under threshold, least utilized first.
func (s *state) candidates(threshold float64) []int {
	var locs []int
	for loc, f := range s.open {
		if f.utilization() < threshold {
			locs = append(locs, loc)
		}
	}
	sort.Slice(locs, func(a, b int) bool {
		ua, ub := s.open[locs[a]].utilization(), s.open[locs[b]].utilization()
		if ua != ub {
			return ua < ub
		}
		return locs[a] < locs[b]
	})
	return locs
}

// tryRemove re-homes all of f's demand into the other open facilities and,
// on success, closes f. Receivers are filled as clones so a failed attempt
// leaves the state untouched.
func (s *state) tryRemove(f *openFacility) bool {
	displaced := newLedger(len(s.p.Demand))
	for _, a := range f.assigned {
		displaced.add(a.point, a.qty)
	}

	clones := make(map[int]*openFacility)
	for _, loc := range s.receivers(f) {
		if displaced.done() {
			break
		}
		c := s.open[loc].clone()
		if s.fill(c, displaced) > 0 {
			clones[loc] = c
		}
	}
	if !displaced.done() {
		return false
	}

	for loc, c := range clones {
		s.open[loc] = c
	}
	delete(s.open, f.loc)
	for i, loc := range s.order {
		if loc == f.loc {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// receivers orders the open facilities other than f that have spare
// capacity by their demand-weighted mean distance to f's points.
func (s *state) receivers(f *openFacility) []int {
	type ranked struct {
		loc  int
		dist float64
	}
	load := f.load()
	var rs []ranked
	for loc, o := range s.open {
		if loc == f.loc || o.spare <= eps {
			continue
		}
		sum := 0.0
		for _, a := range f.assigned {
			sum += a.qty * s.p.Distances.Distance(a.point, loc)
		}
		d := 0.0
		if load > 0 {
			d = sum / load
		}
		rs = append(rs, ranked{loc: loc, dist: d})
	}
	sort.Slice(rs, func(a, b int) bool {
		if rs[a].dist != rs[b].dist {
			return rs[a].dist < rs[b].dist
		}
		return rs[a].loc < rs[b].loc
	})
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.loc
	}
	return out
}
