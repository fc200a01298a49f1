package solver

import "github.com/PeterZhouSZ/brasstower/vecmath"

// omegaStopSq ends the rotation extraction once the correction step is this
// small.
const omegaStopSq = 1e-9

// matchShapes runs shape matching with α=1 over every rigid cluster. Each
// cluster is one parallel work item: centroid reduction, moment matrix
// accumulation, rotation extraction, reposition. Clusters are bounded by the
// per-body particle cap at admission, so one work item stays small.
func (s *Solver) matchShapes() {
	st := s.store
	iters := s.cfg.Solver.RotationExtractionIters

	s.pool.dispatch(len(st.Bodies), func(start, end int, _ *workerScratch) {
		for b := start; b < end; b++ {
			body := &st.Bodies[b]
			count := body.Count()
			if count == 0 {
				continue
			}

			var cm vecmath.Vec3
			for i := body.First; i < body.Last; i++ {
				cm = cm.Add(st.NewPositions[i])
			}
			cm = cm.Scale(1 / float32(count))
			body.CenterOfMass = cm

			var a vecmath.Mat3
			for i := body.First; i < body.Last; i++ {
				a.AddOuter(st.NewPositions[i].Sub(cm), st.RestOffsets[i])
			}

			body.Rotation = extractRotation(a, body.Rotation, iters)
			rot := body.Rotation.Mat3()

			for i := body.First; i < body.Last; i++ {
				st.NewPositions[i] = rot.MulVec(st.RestOffsets[i]).Add(cm)
			}
		}
	})
}

// extractRotation iteratively pulls the rotational part out of the moment
// matrix a, warm-started from the cluster's previous orientation (Müller et
// al., "A robust method to extract the rotational part of deformations").
func extractRotation(a vecmath.Mat3, q vecmath.Quat, maxIters int) vecmath.Quat {
	for iter := 0; iter < maxIters; iter++ {
		r := q.Mat3()

		var cross vecmath.Vec3
		var dot float32
		for c := 0; c < 3; c++ {
			cross = cross.Add(r.Cols[c].Cross(a.Cols[c]))
			dot += r.Cols[c].Dot(a.Cols[c])
		}

		omega := cross.Scale(1 / (vecmath.Abs(dot) + 1e-9))
		w2 := omega.LengthSq()
		if w2 <= omegaStopSq {
			break
		}

		angle := vecmath.Sqrt(w2)
		q = vecmath.FromAxisAngle(omega.Scale(1/angle), angle).Mul(q).Normalized()
	}
	return q
}
