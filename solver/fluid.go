package solver

import (
	"math"

	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// fluidLambdas computes the density constraint multiplier λ at every fluid
// particle. Density sums over every neighbour regardless of phase, which is
// what couples solids into the fluid; λ itself exists only for fluids and is
// zeroed elsewhere so the position pass can read λ_j for any neighbour.
func (s *Solver) fluidLambdas() {
	st := s.store
	g := s.grid
	kern := s.kern
	invRest := 1 / s.restDensity
	relaxEps := s.relaxEps
	cellRange := s.fluidCellRange
	clampC := s.useAkinci

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] >= 0 {
				st.Lambdas[i] = 0
				continue
			}

			pi := st.NewPositions[i]
			var density float32
			var gradII vecmath.Vec3
			var gradSumSq float32

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], pi, cellRange)
			for _, jj := range ws.neighbors {
				j := int(jj)
				diff := pi.Sub(st.NewPositions[j])
				r2 := diff.LengthSq()
				density += kern.Poly6(r2)
				if j == i {
					continue
				}
				grad := kern.SpikyGrad(diff, r2).Scale(invRest)
				gradII = gradII.Add(grad)
				// ∇_j C_i = -∇W/ρ₀; same squared magnitude.
				gradSumSq += grad.LengthSq()
			}

			st.Densities[i] = density

			c := density*invRest - 1
			if clampC && c < 0 {
				// Cohesion supplies the attraction; keep only positive pressure.
				c = 0
			}
			st.Lambdas[i] = -c / (gradII.LengthSq() + gradSumSq + relaxEps)
		}
	})
}

// fluidPositions applies the density constraint correction
// Δp_i = (1/ρ₀) Σ_j (λ_i + λ_j + sCorr) ∇W(p_i - p_j), double buffered.
// The sCorr anti-clustering term is disabled under Akinci cohesion; both add
// surface attraction and together they double-count it.
func (s *Solver) fluidPositions() {
	st := s.store
	g := s.grid
	kern := s.kern
	invRest := 1 / s.restDensity
	cellRange := s.fluidCellRange
	useSCorr := !s.useAkinci
	sCorrK := s.sCorrK
	sCorrN := float64(s.sCorrN)
	invSCorrDenom := float32(0)
	if s.sCorrDenom > 0 {
		invSCorrDenom = 1 / s.sCorrDenom
	}

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			if st.Phases[i] >= 0 {
				st.NewPositionsNext[i] = st.NewPositions[i]
				continue
			}

			pi := st.NewPositions[i]
			lambdaI := st.Lambdas[i]
			var delta vecmath.Vec3

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], pi, cellRange)
			for _, jj := range ws.neighbors {
				j := int(jj)
				if j == i {
					continue
				}
				diff := pi.Sub(st.NewPositions[j])
				r2 := diff.LengthSq()

				scale := lambdaI + st.Lambdas[j]
				if useSCorr {
					ratio := kern.Poly6(r2) * invSCorrDenom
					scale -= sCorrK * float32(math.Pow(float64(ratio), sCorrN))
				}
				delta = delta.Add(kern.SpikyGrad(diff, r2).Scale(scale))
			}

			st.NewPositionsNext[i] = pi.Add(delta.Scale(invRest))
		}
	})

	st.SwapNewPositions()
}
