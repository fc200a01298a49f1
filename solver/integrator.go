package solver

import "github.com/PeterZhouSZ/brasstower/vecmath"

// applyForces integrates gravity into velocities. A picked particle has its
// velocity zeroed and its position held instead.
func (s *Solver) applyForces(dt float32, pick *Pick) {
	st := s.store
	g := s.gravity.Scale(dt)
	pickID := -1
	if pick != nil {
		pickID = pick.ID
	}

	s.pool.dispatch(st.Count(), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			if i == pickID {
				st.Velocities[i] = vecmath.Vec3{}
				st.Positions[i] = pick.Position
				st.NewPositions[i] = pick.Position
				continue
			}
			if st.InvMasses[i] == 0 {
				continue
			}
			st.Velocities[i] = st.Velocities[i].Add(g)
		}
	})
}

// predictPositions writes the explicit-Euler position prediction.
func (s *Solver) predictPositions(dt float32) {
	st := s.store
	s.pool.dispatch(st.Count(), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			if st.InvMasses[i] == 0 {
				st.NewPositions[i] = st.Positions[i]
				continue
			}
			st.NewPositions[i] = st.Positions[i].Add(st.Velocities[i].Scale(dt))
		}
	})
}

// computeInvScaledMasses writes the height-scaled inverse masses used by the
// contact constraint weighting. Particles higher in a stack become
// artificially lighter, which keeps tall stacks from oscillating.
func (s *Solver) computeInvScaledMasses() {
	st := s.store
	k := s.massScalingK
	s.pool.dispatch(st.Count(), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			if st.InvMasses[i] == 0 {
				st.InvScaledMasses[i] = 0
				continue
			}
			// 1 / (m·exp(-k·y))
			st.InvScaledMasses[i] = st.InvMasses[i] * vecmath.Exp(k*st.Positions[i].Y)
		}
	})
}

// updateVelocities reconstructs velocities from the projected position delta.
func (s *Solver) updateVelocities(dt float32) {
	st := s.store
	invDT := 1 / dt
	s.pool.dispatch(st.Count(), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			st.Velocities[i] = st.NewPositions[i].Sub(st.Positions[i]).Scale(invDT)
		}
	})
}

// commitPositions copies projected positions into the committed buffer.
// Fluids always commit; solids commit only when they moved further than the
// sleep threshold, which suppresses resting jitter.
func (s *Solver) commitPositions() {
	st := s.store
	sleepSq := s.sleepEps * s.sleepEps
	s.pool.dispatch(st.Count(), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] < 0 {
				st.Positions[i] = st.NewPositions[i]
				continue
			}
			if st.NewPositions[i].Sub(st.Positions[i]).LengthSq() >= sleepSq {
				st.Positions[i] = st.NewPositions[i]
			}
		}
	})
}
