package particles

import (
	"errors"
	"testing"

	"github.com/PeterZhouSZ/brasstower/vecmath"
)

func TestAdmitGranularsAssignsUniquePhases(t *testing.T) {
	s, err := NewStore(16, 4, 8)
	if err != nil {
		t.Fatal(err)
	}

	positions := []vecmath.Vec3{{X: 0}, {X: 1}, {X: 2}}
	if err := s.AdmitGranulars(positions, 0.5); err != nil {
		t.Fatal(err)
	}

	seen := map[int32]bool{}
	for i := 0; i < s.Count(); i++ {
		phase := s.Phases[i]
		if phase < 0 {
			t.Errorf("granular particle %d has fluid phase %d", i, phase)
		}
		if seen[phase] {
			t.Errorf("phase %d assigned twice", phase)
		}
		seen[phase] = true

		if s.Masses[i] != 0.5 || s.InvMasses[i] != 2 {
			t.Errorf("particle %d mass=%v invMass=%v", i, s.Masses[i], s.InvMasses[i])
		}
	}
}

func TestAdmitRigidBodySharesPhase(t *testing.T) {
	s, err := NewStore(16, 4, 8)
	if err != nil {
		t.Fatal(err)
	}

	// One granular first so rigid phases don't start at zero by accident.
	if err := s.AdmitGranulars([]vecmath.Vec3{{}}, 1); err != nil {
		t.Fatal(err)
	}

	offsets := []vecmath.Vec3{{X: -0.5}, {X: 0.5}}
	world := []vecmath.Vec3{{X: 1.5, Y: 1}, {X: 2.5, Y: 1}}
	if err := s.AdmitRigidBody(world, offsets, 1); err != nil {
		t.Fatal(err)
	}

	if len(s.Bodies) != 1 {
		t.Fatalf("bodies = %d, want 1", len(s.Bodies))
	}
	body := s.Bodies[0]
	if body.First != 1 || body.Last != 3 {
		t.Errorf("body range [%d,%d), want [1,3)", body.First, body.Last)
	}
	if s.Phases[1] != s.Phases[2] {
		t.Errorf("cluster phases differ: %d vs %d", s.Phases[1], s.Phases[2])
	}
	if s.Phases[0] == s.Phases[1] {
		t.Error("cluster shares phase with earlier granular")
	}
	if body.Rotation != vecmath.IdentityQuat() {
		t.Errorf("initial rotation = %v, want identity", body.Rotation)
	}
}

func TestAdmitRigidBodyRejectsOffCenterRestPose(t *testing.T) {
	s, err := NewStore(16, 4, 8)
	if err != nil {
		t.Fatal(err)
	}

	offsets := []vecmath.Vec3{{X: 1}, {X: 2}}
	world := []vecmath.Vec3{{X: 1}, {X: 2}}
	err = s.AdmitRigidBody(world, offsets, 1)
	if !errors.Is(err, ErrPreconditionViolated) {
		t.Errorf("err = %v, want ErrPreconditionViolated", err)
	}
	if s.Count() != 0 {
		t.Errorf("failed admission leaked %d particles", s.Count())
	}
}

func TestAdmitFluidPhase(t *testing.T) {
	s, err := NewStore(8, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AdmitFluid([]vecmath.Vec3{{}, {X: 1}}, 1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < s.Count(); i++ {
		if s.Phases[i] != PhaseFluid {
			t.Errorf("fluid particle %d phase = %d", i, s.Phases[i])
		}
	}
	if s.FluidCount() != 2 {
		t.Errorf("FluidCount = %d, want 2", s.FluidCount())
	}
}

func TestAdmissionErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *Store) error
		want error
	}{
		{
			"particle capacity",
			func(s *Store) error {
				return s.AdmitFluid(make([]vecmath.Vec3, 9), 1)
			},
			ErrCapacityExceeded,
		},
		{
			"cluster size cap",
			func(s *Store) error {
				offsets := []vecmath.Vec3{{X: -1}, {}, {X: 1}, {X: -2}, {X: 2}}
				// Centroid at origin but over the 4-particle body cap.
				return s.AdmitRigidBody(make([]vecmath.Vec3, 5), offsets, 1)
			},
			ErrCapacityExceeded,
		},
		{
			"body count cap",
			func(s *Store) error {
				offsets := []vecmath.Vec3{{X: -0.5}, {X: 0.5}}
				if err := s.AdmitRigidBody([]vecmath.Vec3{{}, {X: 1}}, offsets, 1); err != nil {
					return err
				}
				return s.AdmitRigidBody([]vecmath.Vec3{{Y: 1}, {X: 1, Y: 1}}, offsets, 1)
			},
			ErrCapacityExceeded,
		},
		{
			"non-positive mass",
			func(s *Store) error {
				return s.AdmitGranulars([]vecmath.Vec3{{}}, 0)
			},
			ErrPreconditionViolated,
		},
		{
			"empty block",
			func(s *Store) error {
				return s.AdmitFluid(nil, 1)
			},
			ErrPreconditionViolated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(8, 1, 4)
			if err != nil {
				t.Fatal(err)
			}
			if err := tt.run(s); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewStoreRejectsInvalidCapacities(t *testing.T) {
	if _, err := NewStore(0, 1, 1); !errors.Is(err, ErrAllocationFailed) {
		t.Errorf("err = %v, want ErrAllocationFailed", err)
	}
}

func TestSwapBuffers(t *testing.T) {
	s, err := NewStore(4, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AdmitFluid([]vecmath.Vec3{{X: 1}}, 1); err != nil {
		t.Fatal(err)
	}

	s.NewPositionsNext[0] = vecmath.Vec3{X: 9}
	s.SwapNewPositions()
	if s.NewPositions[0].X != 9 {
		t.Errorf("NewPositions[0] = %v after swap", s.NewPositions[0])
	}

	s.VelocitiesNext[0] = vecmath.Vec3{Y: 3}
	s.SwapVelocities()
	if s.Velocities[0].Y != 3 {
		t.Errorf("Velocities[0] = %v after swap", s.Velocities[0])
	}
}
