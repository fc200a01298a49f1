// Package scene provisions demo particle layouts through the solver's
// admission API. The solver core never generates geometry itself; these
// helpers are the reference callers.
package scene

import (
	"fmt"

	"github.com/PeterZhouSZ/brasstower/solver"
	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// Lattice returns nx*ny*nz positions on a regular grid starting at min.
func Lattice(min vecmath.Vec3, nx, ny, nz int, spacing float32) []vecmath.Vec3 {
	positions := make([]vecmath.Vec3, 0, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				positions = append(positions, vecmath.Vec3{
					X: min.X + float32(x)*spacing,
					Y: min.Y + float32(y)*spacing,
					Z: min.Z + float32(z)*spacing,
				})
			}
		}
	}
	return positions
}

// RigidBoxOffsets returns a cubic cluster rest pose with its centroid at the
// origin, n particles per axis.
func RigidBoxOffsets(n int, spacing float32) []vecmath.Vec3 {
	half := float32(n-1) * spacing * 0.5
	return Lattice(vecmath.Vec3{X: -half, Y: -half, Z: -half}, n, n, n, spacing)
}

// AddBox adds a floor plane and four walls enclosing [min, max]. The box is
// open at the top.
func AddBox(s *solver.Solver, min, max vecmath.Vec3) {
	s.AddPlane(vecmath.Vec3{Y: min.Y}, vecmath.Vec3{Y: 1})
	s.AddPlane(vecmath.Vec3{X: min.X}, vecmath.Vec3{X: 1})
	s.AddPlane(vecmath.Vec3{X: max.X}, vecmath.Vec3{X: -1})
	s.AddPlane(vecmath.Vec3{Z: min.Z}, vecmath.Vec3{Z: 1})
	s.AddPlane(vecmath.Vec3{Z: max.Z}, vecmath.Vec3{Z: -1})
}

// Build populates the solver with a named demo scene.
func Build(name string, s *solver.Solver, radius float32) error {
	spacing := radius * 2

	switch name {
	case "dambreak":
		AddBox(s, vecmath.Vec3{X: -1, Y: 0, Z: -1}, vecmath.Vec3{X: 1, Y: 3, Z: 1})
		fluid := Lattice(vecmath.Vec3{X: -0.95, Y: radius, Z: -0.95}, 20, 40, 20, spacing*0.9)
		return s.AdmitFluid(fluid, 1)

	case "granularpile":
		AddBox(s, vecmath.Vec3{X: -1, Y: 0, Z: -1}, vecmath.Vec3{X: 1, Y: 3, Z: 1})
		grains := Lattice(vecmath.Vec3{X: -0.4, Y: 1, Z: -0.4}, 16, 16, 16, spacing*1.05)
		return s.AdmitGranulars(grains, 1)

	case "boxstack":
		AddBox(s, vecmath.Vec3{X: -1, Y: 0, Z: -1}, vecmath.Vec3{X: 1, Y: 3, Z: 1})
		offsets := RigidBoxOffsets(3, spacing)
		for level := 0; level < 4; level++ {
			center := vecmath.Vec3{Y: 0.3 + float32(level)*0.4}
			world := make([]vecmath.Vec3, len(offsets))
			for i, q := range offsets {
				world[i] = center.Add(q)
			}
			if err := s.AdmitRigidBody(world, offsets, 1); err != nil {
				return err
			}
		}
		return nil

	case "splash":
		// Fluid column over a granular bed with one rigid cube, all phases
		// coupled in one run.
		AddBox(s, vecmath.Vec3{X: -1, Y: 0, Z: -1}, vecmath.Vec3{X: 1, Y: 3, Z: 1})
		grains := Lattice(vecmath.Vec3{X: -0.8, Y: radius, Z: -0.8}, 16, 4, 16, spacing*1.05)
		if err := s.AdmitGranulars(grains, 1); err != nil {
			return err
		}
		offsets := RigidBoxOffsets(3, spacing)
		world := make([]vecmath.Vec3, len(offsets))
		for i, q := range offsets {
			world[i] = vecmath.Vec3{Y: 1.5}.Add(q)
		}
		if err := s.AdmitRigidBody(world, offsets, 2); err != nil {
			return err
		}
		fluid := Lattice(vecmath.Vec3{X: -0.3, Y: 1.8, Z: -0.3}, 12, 20, 12, spacing*0.9)
		return s.AdmitFluid(fluid, 1)

	default:
		return fmt.Errorf("unknown scene %q", name)
	}
}
