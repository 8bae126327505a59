package opt

// closeGap covers demand left after construction. The first pass opens any
// remaining location at its ranked tier and tops up open facilities with
// spare capacity. The second pass upgrades open facilities in place to a
// larger tier. Returns the number of facilities opened and upgraded.
//
// Solve only calls closeGap after the catalog capacity check has passed, so
// the second pass always ends with no pending demand.
func (s *state) closeGap(ranked []Option) (opened, upgraded int) {
	for _, o := range ranked {
		if s.demand.done() {
			return
		}
		if f, ok := s.open[o.Location]; ok {
			if f.spare > eps {
				s.fill(f, s.demand)
			}
			continue
		}
		f := s.newFacility(o)
		if s.fill(f, s.demand) > 0 {
			s.markOpen(f)
			opened++
		}
	}
	for _, o := range ranked {
		if s.demand.done() {
			return
		}
		f, ok := s.open[o.Location]
		if !ok {
			continue
		}
		t := s.p.Tiers[o.Tier]
		if t.Capacity <= f.capacity {
			continue
		}
		f.spare += t.Capacity - f.capacity
		f.capacity = t.Capacity
		f.tier = o.Tier
		upgraded++
		s.fill(f, s.demand)
	}
	return
}
