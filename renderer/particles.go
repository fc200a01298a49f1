// Package renderer draws the solver's particle buffer with raylib. It is a
// consumer of committed positions only; the solver knows nothing about it.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/PeterZhouSZ/brasstower/particles"
	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// ParticleView renders particles as spheres in a 3D orbit camera.
type ParticleView struct {
	Camera rl.Camera3D
	radius float32
}

// New creates a particle view with a camera orbiting the domain center.
func New(radius float32) *ParticleView {
	return &ParticleView{
		Camera: rl.Camera3D{
			Position:   rl.Vector3{X: 3.5, Y: 2.5, Z: 3.5},
			Target:     rl.Vector3{X: 0, Y: 0.8, Z: 0},
			Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
			Fovy:       45,
			Projection: rl.CameraPerspective,
		},
		radius: radius,
	}
}

// UpdateCamera applies raylib's built-in orbital controls.
func (v *ParticleView) UpdateCamera() {
	rl.UpdateCamera(&v.Camera, rl.CameraOrbital)
}

// Draw renders every particle colored by phase: fluids blue, and every solid
// (granular or rigid) a sand tone hashed from its phase. The picked particle
// is drawn yellow.
func (v *ParticleView) Draw(positions []vecmath.Vec3, phases []int32, pickedID int) {
	rl.BeginMode3D(v.Camera)

	rl.DrawGrid(16, 0.25)

	for i, p := range positions {
		pos := rl.Vector3{X: p.X, Y: p.Y, Z: p.Z}
		var color rl.Color
		switch {
		case i == pickedID:
			color = rl.Yellow
		case phases[i] == particles.PhaseFluid:
			color = rl.Color{R: 64, G: 128, B: 230, A: 255}
		default:
			color = phaseColor(phases[i])
		}
		rl.DrawSphereEx(pos, v.radius, 6, 6, color)
	}

	rl.EndMode3D()
}

// phaseColor hashes a solid phase to a stable palette entry.
func phaseColor(phase int32) rl.Color {
	h := uint32(phase) * 2654435761
	return rl.Color{
		R: uint8(160 + h%80),
		G: uint8(110 + (h>>8)%90),
		B: uint8(60 + (h>>16)%60),
		A: 255,
	}
}

// PickParticle returns the particle nearest the mouse ray within pickRadius
// of it, or -1. The returned depth is the distance along the ray, so the
// caller can drag the particle on a fixed-depth plane.
func (v *ParticleView) PickParticle(positions []vecmath.Vec3, pickRadius float32) (int, float32) {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), v.Camera)
	origin := vecmath.Vec3{X: ray.Position.X, Y: ray.Position.Y, Z: ray.Position.Z}
	dir := vecmath.Vec3{X: ray.Direction.X, Y: ray.Direction.Y, Z: ray.Direction.Z}.Normalized()

	best := -1
	bestDepth := float32(0)
	bestMiss := pickRadius

	for i, p := range positions {
		toP := p.Sub(origin)
		depth := toP.Dot(dir)
		if depth <= 0 {
			continue
		}
		miss := toP.Sub(dir.Scale(depth)).Length()
		if miss < bestMiss {
			best = i
			bestDepth = depth
			bestMiss = miss
		}
	}
	return best, bestDepth
}

// RayPoint returns the point at the given depth along the current mouse ray.
func (v *ParticleView) RayPoint(depth float32) vecmath.Vec3 {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), v.Camera)
	origin := vecmath.Vec3{X: ray.Position.X, Y: ray.Position.Y, Z: ray.Position.Z}
	dir := vecmath.Vec3{X: ray.Direction.X, Y: ray.Direction.Y, Z: ray.Direction.Z}.Normalized()
	return origin.Add(dir.Scale(depth))
}
