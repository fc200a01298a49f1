package solver

import "github.com/PeterZhouSZ/brasstower/vecmath"

// stabilizePlane pushes penetrating particles out of the half-space before
// the projection iterations, moving committed and predicted positions
// together so the correction adds no velocity.
func (s *Solver) stabilizePlane(p *Plane) {
	st := s.store
	r := s.radius
	s.pool.dispatch(st.Count(), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			if st.InvMasses[i] == 0 {
				continue
			}
			d := p.Origin.Sub(st.Positions[i]).Dot(p.Normal) + r
			if d <= 0 {
				continue
			}
			push := p.Normal.Scale(d)
			st.Positions[i] = st.Positions[i].Add(push)
			st.NewPositions[i] = st.NewPositions[i].Add(push)
		}
	})
}

// collidePlane projects predicted positions out of the half-space and applies
// Coulomb friction to the tangential part of this sub-step's displacement.
func (s *Solver) collidePlane(p *Plane) {
	st := s.store
	r := s.radius
	staticMu := s.staticMu
	dynamicMu := s.dynamicMu

	s.pool.dispatch(st.Count(), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			if st.InvMasses[i] == 0 {
				continue
			}
			d := p.Origin.Sub(st.NewPositions[i]).Dot(p.Normal) + r
			if d <= 0 {
				continue
			}

			disp := st.NewPositions[i].Sub(st.Positions[i])
			dn := disp.Dot(p.Normal)
			tangent := disp.Sub(p.Normal.Scale(dn))

			st.NewPositions[i] = st.NewPositions[i].Add(p.Normal.Scale(d))

			// Friction only acts against motion into the plane.
			if dn >= 0 {
				continue
			}
			tLen := tangent.Length()
			if tLen < staticMu*(-dn) {
				// Static: remove the whole tangential displacement.
				st.NewPositions[i] = st.NewPositions[i].Sub(tangent)
			} else if tLen > 0 {
				// Dynamic: scale it down, never reverse it.
				scale := vecmath.Min(dynamicMu*(-dn)/tLen, 1)
				st.NewPositions[i] = st.NewPositions[i].Sub(tangent.Scale(scale))
			}
		}
	})
}
