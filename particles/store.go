// Package particles owns the flat per-particle and per-cluster arrays of the
// solver. Storage is laid out struct-of-arrays and sized once at construction;
// admission appends contiguous blocks and nothing is ever deleted.
package particles

import (
	"fmt"

	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// PhaseFluid is the phase tag shared by every fluid particle. Solid particles
// carry unique non-negative phases; equal non-negative phases mean membership
// in the same body and suppress pairwise contact.
const PhaseFluid int32 = -1

// centroidEpsilon bounds how far a rigid rest pose centroid may sit from the
// origin at admission.
const centroidEpsilon = 1e-4

// RigidBody is one shape-matched cluster. Its particles occupy the half-open
// range [First, Last) of the store arrays; rest-pose offsets live in the
// store's RestOffsets arena at the same indices.
type RigidBody struct {
	First, Last  int
	Rotation     vecmath.Quat
	CenterOfMass vecmath.Vec3
}

// Count returns the number of particles in the cluster.
func (b *RigidBody) Count() int {
	return b.Last - b.First
}

// Store holds every per-particle and per-cluster array.
type Store struct {
	// Per-particle state
	Positions       []vecmath.Vec3
	NewPositions    []vecmath.Vec3
	Velocities      []vecmath.Vec3
	Masses          []float32
	InvMasses       []float32
	InvScaledMasses []float32
	Phases          []int32
	Omegas          []vecmath.Vec3

	// Fluid scratch
	Lambdas   []float32
	Densities []float32
	Normals   []vecmath.Vec3

	// Double buffers for projections whose output aliases their input
	NewPositionsNext []vecmath.Vec3
	VelocitiesNext   []vecmath.Vec3

	// Rigid cluster state. RestOffsets is indexed by particle index and only
	// meaningful inside a body's range.
	RestOffsets []vecmath.Vec3
	Bodies      []RigidBody

	count          int
	maxParticles   int
	maxBodies      int
	maxPerBody     int
	nextSolidPhase int32
}

// NewStore allocates arenas for up to maxParticles particles and maxBodies
// rigid clusters of at most maxPerBody particles each.
func NewStore(maxParticles, maxBodies, maxPerBody int) (*Store, error) {
	if maxParticles <= 0 || maxBodies < 0 || maxPerBody <= 0 {
		return nil, fmt.Errorf("%w: maxParticles=%d maxBodies=%d maxPerBody=%d",
			ErrAllocationFailed, maxParticles, maxBodies, maxPerBody)
	}
	s := &Store{
		Positions:        make([]vecmath.Vec3, maxParticles),
		NewPositions:     make([]vecmath.Vec3, maxParticles),
		Velocities:       make([]vecmath.Vec3, maxParticles),
		Masses:           make([]float32, maxParticles),
		InvMasses:        make([]float32, maxParticles),
		InvScaledMasses:  make([]float32, maxParticles),
		Phases:           make([]int32, maxParticles),
		Omegas:           make([]vecmath.Vec3, maxParticles),
		Lambdas:          make([]float32, maxParticles),
		Densities:        make([]float32, maxParticles),
		Normals:          make([]vecmath.Vec3, maxParticles),
		NewPositionsNext: make([]vecmath.Vec3, maxParticles),
		VelocitiesNext:   make([]vecmath.Vec3, maxParticles),
		RestOffsets:      make([]vecmath.Vec3, maxParticles),
		Bodies:           make([]RigidBody, 0, maxBodies),
		maxParticles:     maxParticles,
		maxBodies:        maxBodies,
		maxPerBody:       maxPerBody,
	}
	return s, nil
}

// Count returns the number of admitted particles.
func (s *Store) Count() int {
	return s.count
}

// MaxParticles returns the particle arena capacity.
func (s *Store) MaxParticles() int {
	return s.maxParticles
}

// admitBlock appends len(positions) particles and returns the first index.
func (s *Store) admitBlock(positions []vecmath.Vec3, massPerParticle float32) (int, error) {
	if len(positions) == 0 {
		return 0, fmt.Errorf("%w: empty particle block", ErrPreconditionViolated)
	}
	if massPerParticle <= 0 {
		return 0, fmt.Errorf("%w: mass %g must be positive", ErrPreconditionViolated, massPerParticle)
	}
	if s.count+len(positions) > s.maxParticles {
		return 0, fmt.Errorf("%w: %d particles over %d-particle arena",
			ErrCapacityExceeded, s.count+len(positions), s.maxParticles)
	}

	first := s.count
	invMass := 1 / massPerParticle
	for i, p := range positions {
		idx := first + i
		s.Positions[idx] = p
		s.NewPositions[idx] = p
		s.Velocities[idx] = vecmath.Vec3{}
		s.Masses[idx] = massPerParticle
		s.InvMasses[idx] = invMass
		s.InvScaledMasses[idx] = invMass
	}
	s.count += len(positions)
	return first, nil
}

// AdmitGranulars appends free solid particles. Each particle gets its own
// phase so every pair can collide.
func (s *Store) AdmitGranulars(positions []vecmath.Vec3, massPerParticle float32) error {
	first, err := s.admitBlock(positions, massPerParticle)
	if err != nil {
		return err
	}
	for i := first; i < s.count; i++ {
		s.Phases[i] = s.nextSolidPhase
		s.nextSolidPhase++
	}
	return nil
}

// AdmitRigidBody appends one shape-matched cluster. restOffsets is the rest
// pose with its centroid at the origin; the centroid precondition is enforced
// here. All particles share one phase.
func (s *Store) AdmitRigidBody(worldPositions, restOffsets []vecmath.Vec3, massPerParticle float32) error {
	if len(worldPositions) != len(restOffsets) {
		return fmt.Errorf("%w: %d world positions but %d rest offsets",
			ErrPreconditionViolated, len(worldPositions), len(restOffsets))
	}
	if len(worldPositions) > s.maxPerBody {
		return fmt.Errorf("%w: cluster of %d exceeds %d particles per body",
			ErrCapacityExceeded, len(worldPositions), s.maxPerBody)
	}
	if len(s.Bodies) >= s.maxBodies {
		return fmt.Errorf("%w: %d rigid bodies already admitted", ErrCapacityExceeded, s.maxBodies)
	}

	var centroid vecmath.Vec3
	for _, q := range restOffsets {
		centroid = centroid.Add(q)
	}
	centroid = centroid.Scale(1 / float32(len(restOffsets)))
	if centroid.LengthSq() > centroidEpsilon*centroidEpsilon {
		return fmt.Errorf("%w: rest centroid (%g, %g, %g) not at origin",
			ErrPreconditionViolated, centroid.X, centroid.Y, centroid.Z)
	}

	first, err := s.admitBlock(worldPositions, massPerParticle)
	if err != nil {
		return err
	}

	phase := s.nextSolidPhase
	s.nextSolidPhase++
	for i := first; i < s.count; i++ {
		s.Phases[i] = phase
		s.RestOffsets[i] = restOffsets[i-first]
	}

	s.Bodies = append(s.Bodies, RigidBody{
		First:    first,
		Last:     s.count,
		Rotation: vecmath.IdentityQuat(),
	})
	return nil
}

// AdmitFluid appends fluid particles. All fluids share the fluid phase and
// never generate pairwise contact constraints.
func (s *Store) AdmitFluid(positions []vecmath.Vec3, massPerParticle float32) error {
	first, err := s.admitBlock(positions, massPerParticle)
	if err != nil {
		return err
	}
	for i := first; i < s.count; i++ {
		s.Phases[i] = PhaseFluid
	}
	return nil
}

// SwapNewPositions exchanges the projected position buffer with its scratch
// twin after a double-buffered pass.
func (s *Store) SwapNewPositions() {
	s.NewPositions, s.NewPositionsNext = s.NewPositionsNext, s.NewPositions
}

// SwapVelocities exchanges the velocity buffer with its scratch twin.
func (s *Store) SwapVelocities() {
	s.Velocities, s.VelocitiesNext = s.VelocitiesNext, s.Velocities
}

// FluidCount returns the number of fluid-phase particles.
func (s *Store) FluidCount() int {
	n := 0
	for i := 0; i < s.count; i++ {
		if s.Phases[i] < 0 {
			n++
		}
	}
	return n
}
