package solver

import "github.com/PeterZhouSZ/brasstower/vecmath"

// projectContacts resolves pairwise non-penetration with friction over the
// 3x3x3 cell neighbourhood. Corrections are Jacobi-style: every particle
// gathers its own corrections into the scratch position buffer and the
// buffers swap afterwards, so no particle observes a neighbour's
// same-iteration write.
//
// Friction corrections are averaged over the contact count. Summing them
// diverges for particles wedged between several contacts.
func (s *Solver) projectContacts() {
	st := s.store
	g := s.grid
	twoR := 2 * s.radius
	twoRSq := twoR * twoR
	frictionThresholdSq := (0.001 * s.radius) * (0.001 * s.radius)
	staticMu := s.staticMu
	dynamicMu := s.dynamicMu

	s.pool.dispatch(st.Count(), func(start, end int, ws *workerScratch) {
		for i := start; i < end; i++ {
			xi := st.NewPositions[i]
			var sumDelta, sumFriction vecmath.Vec3
			contacts := 0

			ws.neighbors = g.NeighborsInto(ws.neighbors[:0], xi, 1)
			for _, jj := range ws.neighbors {
				j := int(jj)
				if j == i || st.Phases[i] == st.Phases[j] {
					continue
				}

				xj := st.NewPositions[j]
				delta := xi.Sub(xj)
				distSq := delta.LengthSq()
				if distSq >= twoRSq || distSq == 0 {
					continue
				}

				wSum := st.InvScaledMasses[i] + st.InvScaledMasses[j]
				if wSum == 0 {
					continue
				}
				dist := vecmath.Sqrt(distSq)
				wi := st.InvScaledMasses[i] / wSum
				wj := 1 - wi

				proj := delta.Scale(twoR/dist - 1)
				di := proj.Scale(wi)
				sumDelta = sumDelta.Add(di)

				if di.LengthSq() <= frictionThresholdSq {
					continue
				}

				// Relative displacement between both projected endpoints,
				// split against the contact normal.
				n := delta.Scale(1 / dist)
				dispI := xi.Add(di).Sub(st.Positions[i])
				dispJ := xj.Sub(proj.Scale(wj)).Sub(st.Positions[j])
				rel := dispI.Sub(dispJ)
				tangent := rel.Sub(n.Scale(rel.Dot(n)))

				pen := twoR - dist
				tLen := tangent.Length()
				if tLen < staticMu*pen {
					sumFriction = sumFriction.Sub(tangent.Scale(wi))
				} else if tLen > 0 {
					scale := vecmath.Min(dynamicMu*pen/tLen, 1)
					sumFriction = sumFriction.Sub(tangent.Scale(wi * scale))
				}
				contacts++
			}

			out := xi.Add(sumDelta)
			if contacts > 0 {
				out = out.Add(sumFriction.Scale(1 / float32(contacts)))
			}
			st.NewPositionsNext[i] = out
		}
	})

	st.SwapNewPositions()
}
