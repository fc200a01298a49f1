package scene

import (
	"testing"

	"github.com/PeterZhouSZ/brasstower/config"
	"github.com/PeterZhouSZ/brasstower/solver"
	"github.com/PeterZhouSZ/brasstower/vecmath"
)

func TestLatticeCountAndSpacing(t *testing.T) {
	got := Lattice(vecmath.Vec3{X: 1, Y: 2, Z: 3}, 2, 3, 4, 0.5)
	if len(got) != 24 {
		t.Fatalf("lattice size %d, want 24", len(got))
	}
	if got[0] != (vecmath.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("first point %v", got[0])
	}
	if got[1] != (vecmath.Vec3{X: 1.5, Y: 2, Z: 3}) {
		t.Errorf("second point %v, want x-major stride", got[1])
	}
}

func TestRigidBoxOffsetsCentered(t *testing.T) {
	offsets := RigidBoxOffsets(3, 0.1)
	if len(offsets) != 27 {
		t.Fatalf("offsets = %d, want 27", len(offsets))
	}
	var centroid vecmath.Vec3
	for _, q := range offsets {
		centroid = centroid.Add(q)
	}
	centroid = centroid.Scale(1 / float32(len(offsets)))
	if centroid.Length() > 1e-6 {
		t.Errorf("centroid %v, want origin", centroid)
	}
}

func TestBuildScenes(t *testing.T) {
	for _, name := range []string{"dambreak", "granularpile", "boxstack", "splash"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			s, err := solver.New(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			if err := Build(name, s, cfg.Derived.Radius32); err != nil {
				t.Fatal(err)
			}
			if s.NumParticles() == 0 {
				t.Error("scene admitted no particles")
			}
		})
	}
}

func TestBuildUnknownScene(t *testing.T) {
	cfg := config.Default()
	s, err := solver.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := Build("nope", s, cfg.Derived.Radius32); err == nil {
		t.Error("expected error for unknown scene")
	}
}
