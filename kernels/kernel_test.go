package kernels

import (
	"math"
	"testing"

	"github.com/PeterZhouSZ/brasstower/vecmath"
)

func TestPoly6(t *testing.T) {
	h := float32(0.115)
	p := NewParams(h)

	tests := []struct {
		name string
		r2   float32
		want float64
	}{
		{"at origin", 0, 315.0 / (64.0 * math.Pi * math.Pow(0.115, 3))},
		{"at support boundary", h * h, 0},
		{"outside support", h * h * 1.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := float64(p.Poly6(tt.r2))
			if math.Abs(got-tt.want) > tt.want*1e-4+1e-6 {
				t.Errorf("Poly6(%v) = %v, want %v", tt.r2, got, tt.want)
			}
		})
	}

	// Monotonically decreasing on the support.
	prev := p.Poly6(0)
	for r := float32(0.01); r < h; r += 0.01 {
		w := p.Poly6(r * r)
		if w > prev {
			t.Fatalf("Poly6 not decreasing at r=%v", r)
		}
		prev = w
	}
}

func TestSpikyGrad(t *testing.T) {
	p := NewParams(0.115)

	v := vecmath.Vec3{X: 0.05}
	grad := p.SpikyGrad(v, v.LengthSq())

	// Gradient points from j toward i scaled negative: repulsive direction is
	// -grad, so grad.X must be negative for a positive offset.
	if grad.X >= 0 {
		t.Errorf("SpikyGrad.X = %v, want negative", grad.X)
	}
	if grad.Y != 0 || grad.Z != 0 {
		t.Errorf("off-axis gradient = %v, want zero", grad)
	}

	// Expected magnitude: 45/(π h⁶) (h-r)².
	r := 0.05
	want := 45.0 / (math.Pi * math.Pow(0.115, 6)) * math.Pow(0.115-r, 2)
	got := float64(grad.Length())
	if math.Abs(got-want) > want*1e-4 {
		t.Errorf("|SpikyGrad| = %v, want %v", got, want)
	}

	if g := p.SpikyGrad(vecmath.Vec3{}, 0); g != (vecmath.Vec3{}) {
		t.Errorf("SpikyGrad at origin = %v, want zero", g)
	}
	far := vecmath.Vec3{X: 0.2}
	if g := p.SpikyGrad(far, far.LengthSq()); g != (vecmath.Vec3{}) {
		t.Errorf("SpikyGrad outside support = %v, want zero", g)
	}
}

func TestAkinciSpline(t *testing.T) {
	h := float32(0.115)
	p := NewParams(h)

	if got := p.AkinciSpline(0); got != 0 {
		t.Errorf("AkinciSpline(0) = %v, want 0", got)
	}
	if got := p.AkinciSpline(h); got != 0 {
		t.Errorf("AkinciSpline(h) = %v, want 0", got)
	}
	if got := p.AkinciSpline(h * 2); got != 0 {
		t.Errorf("AkinciSpline(2h) = %v, want 0", got)
	}

	// The two branches must agree at the h/2 seam.
	seam := h / 2
	lo := p.AkinciSpline(seam * 0.9999)
	hi := p.AkinciSpline(seam * 1.0001)
	if math.Abs(float64(lo-hi)) > float64(hi)*1e-2 {
		t.Errorf("branch mismatch at h/2: below=%v above=%v", lo, hi)
	}

	// Outer branch value check: C·((h-r)·r)³ at r = 0.75h.
	r := 0.75 * float64(h)
	c := 32.0 / (math.Pi * math.Pow(float64(h), 9))
	want := c * math.Pow((float64(h)-r)*r, 3)
	got := float64(p.AkinciSpline(float32(r)))
	if math.Abs(got-want) > want*1e-4 {
		t.Errorf("AkinciSpline(0.75h) = %v, want %v", got, want)
	}
}

func TestNewParamsCoefficients(t *testing.T) {
	h := 0.2
	p := NewParams(float32(h))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"h2", float64(p.H2), h * h},
		{"half h", float64(p.HalfH), h / 2},
		{"poly6", float64(p.Poly6C), 315.0 / (64.0 * math.Pi * math.Pow(h, 9))},
		{"spiky grad", float64(p.SpikyGradC), -45.0 / (math.Pi * math.Pow(h, 6))},
		{"akinci", float64(p.AkinciC), 32.0 / (math.Pi * math.Pow(h, 9))},
		{"akinci offset", float64(p.AkinciC2), 32.0 / (math.Pi * math.Pow(h, 9)) * math.Pow(h, 6) / 64.0},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if math.Abs(c.got-c.want) > math.Abs(c.want)*1e-5 {
				t.Errorf("got %v, want %v", c.got, c.want)
			}
		})
	}
}
