package solver

import (
	"math"
	"testing"

	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// admitContactPair places two equal-mass granulars with predicted positions
// overlapping by 0.002 along x (centers 0.098 apart, radius 0.05) and the
// given committed positions encoding this sub-step's prior motion.
func admitContactPair(t *testing.T, s *Solver, pos0, pos1 vecmath.Vec3) {
	t.Helper()
	err := s.AdmitGranulars([]vecmath.Vec3{
		{Y: 1},
		{X: 0.098, Y: 1},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	s.store.Positions[0] = pos0
	s.store.Positions[1] = pos1
	s.grid.Update(s.store.NewPositions, s.store.Count())
}

func TestProjectContactsFriction(t *testing.T) {
	// Equal masses at equal height give w_i = w_j = 1/2, so each particle
	// takes half of the 0.002 overlap: Δx = ∓0.001. The committed positions
	// differ only in z, so the relative displacement against the x contact
	// normal is purely tangential with ‖Δt‖ = 2·|z offset|, judged against
	// the penetration 2r-d = 0.002 (μ_s = 0.65, μ_d = 0.45).
	tests := []struct {
		name         string
		pos0, pos1   vecmath.Vec3
		want0, want1 vecmath.Vec3
	}{
		{
			// ‖Δt‖ = 0.0006 < μ_s·0.002 = 0.0013: stick removes the whole
			// tangential part, weighted by w_i: ∓0.5·0.0006 on z.
			name:  "static sticks",
			pos0:  vecmath.Vec3{Y: 1, Z: -0.0003},
			pos1:  vecmath.Vec3{X: 0.098, Y: 1, Z: 0.0003},
			want0: vecmath.Vec3{X: -0.001, Y: 1, Z: -0.0003},
			want1: vecmath.Vec3{X: 0.099, Y: 1, Z: 0.0003},
		},
		{
			// ‖Δt‖ = 0.006 ≥ 0.0013: slip scales the tangent by
			// μ_d·0.002/0.006 = 0.15, weighted by w_i: ∓0.5·0.15·0.006.
			name:  "dynamic slips",
			pos0:  vecmath.Vec3{Y: 1, Z: -0.003},
			pos1:  vecmath.Vec3{X: 0.098, Y: 1, Z: 0.003},
			want0: vecmath.Vec3{X: -0.001, Y: 1, Z: -0.00045},
			want1: vecmath.Vec3{X: 0.099, Y: 1, Z: 0.00045},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			gravityOff(cfg)
			s := newTestSolver(t, cfg)
			admitContactPair(t, s, tt.pos0, tt.pos1)

			s.projectContacts()

			for i, want := range []vecmath.Vec3{tt.want0, tt.want1} {
				got := s.store.NewPositions[i]
				if got.Sub(want).Length() > 1e-6 {
					t.Errorf("particle %d projected to %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestProjectContactsSkipsTinyCorrections(t *testing.T) {
	cfg := testConfig()
	gravityOff(cfg)
	s := newTestSolver(t, cfg)

	// Overlap of 5e-5 gives |w_i·p| = 2.5e-5 ≤ 0.001·r = 5e-5: the
	// non-penetration push still applies but friction must not engage, even
	// with a large tangential history.
	err := s.AdmitGranulars([]vecmath.Vec3{
		{Y: 1},
		{X: 0.09995, Y: 1},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	s.store.Positions[0] = vecmath.Vec3{Y: 1, Z: -0.01}
	s.store.Positions[1] = vecmath.Vec3{X: 0.09995, Y: 1, Z: 0.01}
	s.grid.Update(s.store.NewPositions, s.store.Count())

	s.projectContacts()

	got := s.store.NewPositions[0]
	if vecmath.Abs(got.X-(-2.5e-5)) > 1e-6 {
		t.Errorf("normal correction x = %v, want -2.5e-5", got.X)
	}
	if got.Z != 0 {
		t.Errorf("friction applied below threshold: z = %v", got.Z)
	}
}

func TestProjectContactsSamePhaseSkips(t *testing.T) {
	cfg := testConfig()
	gravityOff(cfg)
	s := newTestSolver(t, cfg)

	// Fluids share one phase: the contact pass must leave them to the
	// density constraint.
	err := s.AdmitFluid([]vecmath.Vec3{
		{Y: 1},
		{X: 0.098, Y: 1},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	s.grid.Update(s.store.NewPositions, s.store.Count())

	s.projectContacts()

	if got := s.store.NewPositions[0]; got != (vecmath.Vec3{Y: 1}) {
		t.Errorf("fluid moved by contact pass to %v", got)
	}
	if got := s.store.NewPositions[1]; got != (vecmath.Vec3{X: 0.098, Y: 1}) {
		t.Errorf("fluid moved by contact pass to %v", got)
	}
}

func TestProjectContactsUsesScaledMasses(t *testing.T) {
	cfg := testConfig()
	gravityOff(cfg)
	s := newTestSolver(t, cfg)

	// Vertical stack overlapping by 0.002: the height-scaled masses make the
	// upper particle lighter, so it takes the larger share of the push.
	err := s.AdmitGranulars([]vecmath.Vec3{
		{Y: 1},
		{Y: 1.098},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	s.computeInvScaledMasses()
	s.grid.Update(s.store.NewPositions, s.store.Count())

	s.projectContacts()

	st := s.store
	bottomMove := 1 - float64(st.NewPositions[0].Y)
	topMove := float64(st.NewPositions[1].Y) - 1.098

	if topMove <= bottomMove {
		t.Errorf("top moved %v, bottom %v; lighter top must take the larger share",
			topMove, bottomMove)
	}

	// w_top = e^(k·1.098) / (e^(k·1) + e^(k·1.098)) with k = 4, applied to
	// the 0.002 overlap.
	k := cfg.Physics.MassScalingK
	wTop := math.Exp(k*1.098) / (math.Exp(k*1) + math.Exp(k*1.098))
	pen := 0.002
	if math.Abs(topMove-wTop*pen) > 1e-6 {
		t.Errorf("top moved %v, want %v", topMove, wTop*pen)
	}
	if math.Abs(bottomMove-(1-wTop)*pen) > 1e-6 {
		t.Errorf("bottom moved %v, want %v", bottomMove, (1-wTop)*pen)
	}
}
