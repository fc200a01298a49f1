package solver

import "github.com/PeterZhouSZ/brasstower/vecmath"

// The post-pass runs after positions commit and velocities reconstruct. All
// neighbour sums here are fluid-to-fluid; solids have no velocity field worth
// smoothing and no surface to confine.

// fluidOmegas caches the vorticity ω_i = Σ_j (v_j - v_i) × ∇W(p_i - p_j).
func (s *Solver) fluidOmegas() {
	st := s.store
	g := s.grid
	kern := s.kern
	cellRange := s.fluidCellRange

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] >= 0 {
				continue
			}
			pi := st.Positions[i]
			vi := st.Velocities[i]
			var omega vecmath.Vec3

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], pi, cellRange)
			for _, jj := range ws.neighbors {
				j := int(jj)
				if j == i || st.Phases[j] >= 0 {
					continue
				}
				diff := pi.Sub(st.Positions[j])
				grad := kern.SpikyGrad(diff, diff.LengthSq())
				omega = omega.Add(st.Velocities[j].Sub(vi).Cross(grad))
			}
			st.Omegas[i] = omega
		}
	})
}

// applyVorticity adds the confinement force ε·(η̂ × ω) to fluid velocities.
// η points toward higher vorticity magnitude; forcing along η̂ × ω re-injects
// the rotational energy the coarse velocity field dissipates.
func (s *Solver) applyVorticity(dt float32) {
	st := s.store
	g := s.grid
	kern := s.kern
	cellRange := s.fluidCellRange
	scale := s.vorticityScale

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] >= 0 {
				continue
			}
			pi := st.Positions[i]
			var eta vecmath.Vec3

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], pi, cellRange)
			for _, jj := range ws.neighbors {
				j := int(jj)
				if j == i || st.Phases[j] >= 0 {
					continue
				}
				diff := pi.Sub(st.Positions[j])
				grad := kern.SpikyGrad(diff, diff.LengthSq())
				eta = eta.Add(grad.Scale(st.Omegas[j].Length()))
			}

			etaSq := eta.LengthSq()
			if etaSq <= 1e-3 {
				continue
			}
			n := eta.Scale(1 / vecmath.Sqrt(etaSq))
			force := n.Cross(st.Omegas[i]).Scale(scale)
			st.Velocities[i] = st.Velocities[i].Add(force.Scale(dt))
		}
	})
}

// fluidNormals caches the surface normal estimate
// n_i = h · Σ_j (1/ρ_j) ∇W(p_i - p_j) used by the curvature tension term.
func (s *Solver) fluidNormals() {
	st := s.store
	g := s.grid
	kern := s.kern
	cellRange := s.fluidCellRange

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] >= 0 {
				continue
			}
			pi := st.Positions[i]
			var normal vecmath.Vec3

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], pi, cellRange)
			for _, jj := range ws.neighbors {
				j := int(jj)
				if j == i || st.Phases[j] >= 0 || st.Densities[j] == 0 {
					continue
				}
				diff := pi.Sub(st.Positions[j])
				grad := kern.SpikyGrad(diff, diff.LengthSq())
				normal = normal.Add(grad.Scale(1 / st.Densities[j]))
			}
			st.Normals[i] = normal.Scale(kern.H)
		}
	})
}

// applyAkinciTension adds the pairwise cohesion spline force and the
// normal-difference curvature force, symmetrized by k_ij = 2ρ₀/(ρ_i+ρ_j).
// Velocities double-buffer because each particle reads its neighbours'
// pre-pass state.
func (s *Solver) applyAkinciTension(dt float32) {
	st := s.store
	g := s.grid
	kern := s.kern
	cellRange := s.fluidCellRange
	sigma := s.surfaceTension
	twoRest := 2 * s.restDensity

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] >= 0 {
				st.VelocitiesNext[i] = st.Velocities[i]
				continue
			}
			pi := st.Positions[i]
			var force vecmath.Vec3

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], pi, cellRange)
			for _, jj := range ws.neighbors {
				j := int(jj)
				if j == i || st.Phases[j] >= 0 {
					continue
				}
				diff := pi.Sub(st.Positions[j])
				dist := diff.Length()
				if dist == 0 {
					continue
				}
				denom := st.Densities[i] + st.Densities[j]
				if denom == 0 {
					continue
				}

				cohesion := diff.Scale(-sigma * kern.AkinciSpline(dist) / dist)
				curvature := st.Normals[i].Sub(st.Normals[j]).Scale(-sigma)
				k := twoRest / denom
				force = force.Add(cohesion.Add(curvature).Scale(k))
			}

			st.VelocitiesNext[i] = st.Velocities[i].Add(force.Scale(dt))
		}
	})

	st.SwapVelocities()
}

// applyXSPH blends each fluid velocity toward its neighbourhood average,
// v_i += c Σ_j (v_j - v_i) W(‖p_i - p_j‖²). Runs last; double buffered.
func (s *Solver) applyXSPH() {
	st := s.store
	g := s.grid
	kern := s.kern
	cellRange := s.fluidCellRange
	c := s.xsphC

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] >= 0 {
				st.VelocitiesNext[i] = st.Velocities[i]
				continue
			}
			pi := st.Positions[i]
			vi := st.Velocities[i]
			var blend vecmath.Vec3

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], pi, cellRange)
			for _, jj := range ws.neighbors {
				j := int(jj)
				if j == i || st.Phases[j] >= 0 {
					continue
				}
				diff := pi.Sub(st.Positions[j])
				blend = blend.Add(st.Velocities[j].Sub(vi).Scale(kern.Poly6(diff.LengthSq())))
			}

			st.VelocitiesNext[i] = vi.Add(blend.Scale(c))
		}
	})

	st.SwapVelocities()
}
