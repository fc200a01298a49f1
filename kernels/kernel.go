// Package kernels provides the SPH smoothing kernels used by the fluid
// constraint solver: the poly6 density kernel, the spiky gradient kernel, and
// the Akinci cohesion spline.
package kernels

import (
	"math"

	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// Params holds a kernel radius and every coefficient derived from it. All
// kernel evaluations in a solver share one Params, so the powers of h are
// computed once at construction.
type Params struct {
	H     float32 // kernel radius
	H2    float32 // h²
	HalfH float32 // h/2

	Poly6C     float32 // 315 / (64 π h⁹)
	SpikyGradC float32 // -45 / (π h⁶)
	AkinciC    float32 // 32 / (π h⁹)
	AkinciC2   float32 // AkinciC · h⁶ / 64
}

// NewParams precomputes the kernel coefficients for radius h.
func NewParams(h float32) Params {
	h64 := float64(h)
	h6 := math.Pow(h64, 6)
	h9 := math.Pow(h64, 9)
	akinci := 32.0 / (math.Pi * h9)
	return Params{
		H:          h,
		H2:         h * h,
		HalfH:      h * 0.5,
		Poly6C:     float32(315.0 / (64.0 * math.Pi * h9)),
		SpikyGradC: float32(-45.0 / (math.Pi * h6)),
		AkinciC:    float32(akinci),
		AkinciC2:   float32(akinci * h6 / 64.0),
	}
}

// Poly6 evaluates W_poly6 at squared distance r2.
func (p Params) Poly6(r2 float32) float32 {
	if r2 > p.H2 {
		return 0
	}
	d := p.H2 - r2
	return p.Poly6C * d * d * d
}

// SpikyGrad evaluates ∇W_spiky for the offset vector v with squared length r2.
// The zero vector is returned outside the support and at the singular origin.
func (p Params) SpikyGrad(v vecmath.Vec3, r2 float32) vecmath.Vec3 {
	if r2 > p.H2 || r2 == 0 {
		return vecmath.Vec3{}
	}
	r := vecmath.Sqrt(r2)
	d := p.H - r
	return v.Scale(p.SpikyGradC * d * d / r)
}

// AkinciSpline evaluates the Akinci cohesion spline at distance r.
func (p Params) AkinciSpline(r float32) float32 {
	if r <= 0 || r >= p.H {
		return 0
	}
	t := (p.H - r) * r
	t3 := t * t * t
	if r >= p.HalfH {
		return p.AkinciC * t3
	}
	return 2*p.AkinciC*t3 - p.AkinciC2
}
