// Package solver implements the unified Position-Based Dynamics pipeline:
// prediction, neighbour-grid construction, constraint projection (planes,
// particle contacts, fluid density, rigid shape matching), velocity
// reconstruction, and the fluid post-pass (vorticity confinement, Akinci
// tension, XSPH viscosity). One solver steps a heterogeneous particle
// population where the phase tag selects the material class per particle.
package solver

import (
	"fmt"

	"github.com/PeterZhouSZ/brasstower/config"
	"github.com/PeterZhouSZ/brasstower/grid"
	"github.com/PeterZhouSZ/brasstower/kernels"
	"github.com/PeterZhouSZ/brasstower/particles"
	"github.com/PeterZhouSZ/brasstower/telemetry"
	"github.com/PeterZhouSZ/brasstower/vecmath"
)

// Plane is an infinite half-space boundary. Points with
// dot(Normal, x-Origin) >= 0 are inside.
type Plane struct {
	Origin vecmath.Vec3
	Normal vecmath.Vec3
}

// Pick pins one particle for the duration of a step, typically from mouse
// interaction. After the step the particle holds exactly Position and
// Velocity.
type Pick struct {
	ID       int
	Position vecmath.Vec3
	Velocity vecmath.Vec3
}

// Solver advances the particle system. It is not safe for concurrent use;
// the internal worker pool parallelizes each kernel over particles.
type Solver struct {
	cfg   *config.Config
	store *particles.Store
	grid  *grid.Grid
	kern  kernels.Params
	pool  *pool

	planes []Plane

	// Cached per-step scalars
	radius         float32
	gravity        vecmath.Vec3
	restDensity    float32
	relaxEps       float32
	sCorrK         float32
	sCorrN         float32
	sCorrDenom     float32 // W_poly6((0.03h)²)
	vorticityScale float32
	surfaceTension float32
	xsphC          float32
	useAkinci      bool
	staticMu       float32
	dynamicMu      float32
	massScalingK   float32
	sleepEps       float32
	fluidCellRange int

	perf *telemetry.PerfCollector
}

// New creates a solver from the configuration.
func New(cfg *config.Config) (*Solver, error) {
	store, err := particles.NewStore(
		cfg.Capacity.MaxParticles,
		cfg.Capacity.MaxRigidBodies,
		cfg.Capacity.MaxParticlesPerRigidBody,
	)
	if err != nil {
		return nil, fmt.Errorf("creating particle store: %w", err)
	}

	var origin vecmath.Vec3
	if len(cfg.Grid.Origin) == 3 {
		origin = vecmath.Vec3{
			X: float32(cfg.Grid.Origin[0]),
			Y: float32(cfg.Grid.Origin[1]),
			Z: float32(cfg.Grid.Origin[2]),
		}
	}

	kern := kernels.NewParams(float32(cfg.Fluid.KernelRadius))
	sCorrRef := float32(0.03) * kern.H

	s := &Solver{
		cfg:   cfg,
		store: store,
		grid: grid.New(
			cfg.Grid.DimX, cfg.Grid.DimY, cfg.Grid.DimZ,
			float32(cfg.Grid.CellSize), origin,
			cfg.Capacity.MaxParticles, cfg.Grid.MaxPerCell,
		),
		kern: kern,
		pool: newPool(),

		radius:         cfg.Derived.Radius32,
		gravity:        vecmath.Vec3{X: cfg.Derived.GravityX, Y: cfg.Derived.GravityY, Z: cfg.Derived.GravityZ},
		restDensity:    float32(cfg.Fluid.RestDensity),
		relaxEps:       float32(cfg.Fluid.RelaxationEpsilon),
		sCorrK:         float32(cfg.Fluid.SCorrK),
		sCorrN:         float32(cfg.Fluid.SCorrN),
		sCorrDenom:     kern.Poly6(sCorrRef * sCorrRef),
		vorticityScale: float32(cfg.Fluid.VorticityScale),
		surfaceTension: float32(cfg.Fluid.SurfaceTension),
		xsphC:          float32(cfg.Fluid.XSPHC),
		useAkinci:      cfg.Fluid.UseAkinciCohesionTension,
		staticMu:       float32(cfg.Friction.Static),
		dynamicMu:      float32(cfg.Friction.Dynamic),
		massScalingK:   float32(cfg.Physics.MassScalingK),
		sleepEps:       float32(cfg.Physics.SleepEpsilon),
		fluidCellRange: cfg.Derived.FluidCellRange,
	}
	return s, nil
}

// Close stops the worker pool.
func (s *Solver) Close() {
	s.pool.stop()
}

// SetPerfCollector attaches a telemetry collector; nil disables phase timing.
func (s *Solver) SetPerfCollector(p *telemetry.PerfCollector) {
	s.perf = p
}

func (s *Solver) phase(p telemetry.Phase) {
	if s.perf != nil {
		s.perf.StartPhase(p)
	}
}

// SetAkinciCohesion switches between sCorr anti-clustering and Akinci
// cohesion/curvature tension. The λ clamp and the sCorr term flip together;
// they must never both be active.
func (s *Solver) SetAkinciCohesion(enabled bool) {
	s.useAkinci = enabled
}

// AddPlane adds an infinite half-space boundary. The normal is normalized.
func (s *Solver) AddPlane(origin, normal vecmath.Vec3) {
	s.planes = append(s.planes, Plane{Origin: origin, Normal: normal.Normalized()})
}

// AdmitGranulars appends free solid particles, one phase per particle.
func (s *Solver) AdmitGranulars(positions []vecmath.Vec3, massPerParticle float32) error {
	return s.store.AdmitGranulars(positions, massPerParticle)
}

// AdmitRigidBody appends one shape-matched cluster. restOffsets must have
// their centroid at the origin.
func (s *Solver) AdmitRigidBody(worldPositions, restOffsets []vecmath.Vec3, massPerParticle float32) error {
	return s.store.AdmitRigidBody(worldPositions, restOffsets, massPerParticle)
}

// AdmitFluid appends fluid-phase particles.
func (s *Solver) AdmitFluid(positions []vecmath.Vec3, massPerParticle float32) error {
	return s.store.AdmitFluid(positions, massPerParticle)
}

// NumParticles returns the admitted particle count.
func (s *Solver) NumParticles() int {
	return s.store.Count()
}

// Store exposes the particle arrays for telemetry and tests.
func (s *Solver) Store() *particles.Store {
	return s.store
}

// Positions returns the committed position buffer, the view the renderer
// consumes between steps.
func (s *Solver) Positions() []vecmath.Vec3 {
	return s.store.Positions[:s.store.Count()]
}

// ReadParticlePosition returns one committed particle position.
func (s *Solver) ReadParticlePosition(i int) vecmath.Vec3 {
	return s.store.Positions[i]
}

// SetParticle overwrites one particle's position and velocity.
func (s *Solver) SetParticle(i int, pos, vel vecmath.Vec3) {
	s.store.Positions[i] = pos
	s.store.NewPositions[i] = pos
	s.store.Velocities[i] = vel
}

// Step advances the simulation by dt seconds split into subSteps sub-steps.
// If pick is non-nil, the picked particle is pinned for the whole step and
// holds exactly pick.Position and pick.Velocity afterwards.
func (s *Solver) Step(subSteps int, dt float32, pick *Pick) {
	if subSteps < 1 {
		subSteps = 1
	}
	sdt := dt / float32(subSteps)
	n := s.store.Count()
	if n == 0 {
		return
	}

	solverCfg := &s.cfg.Solver

	for sub := 0; sub < subSteps; sub++ {
		s.phase(telemetry.PhaseIntegrate)
		s.applyForces(sdt, pick)
		s.predictPositions(sdt)
		s.computeInvScaledMasses()

		s.phase(telemetry.PhaseStabilize)
		for round := 0; round < solverCfg.StabilizationRounds; round++ {
			for p := range s.planes {
				s.stabilizePlane(&s.planes[p])
			}
		}

		for outer := 0; outer < solverCfg.OuterIterations; outer++ {
			s.phase(telemetry.PhaseGrid)
			s.grid.Update(s.store.NewPositions, n)

			for inner := 0; inner < solverCfg.InnerIterations; inner++ {
				s.phase(telemetry.PhasePlanes)
				for p := range s.planes {
					s.collidePlane(&s.planes[p])
				}

				if solverCfg.ParticleContactFriction {
					s.phase(telemetry.PhaseContacts)
					s.projectContacts()
				}

				s.phase(telemetry.PhaseFluid)
				s.fluidLambdas()
				s.fluidPositions()

				if len(s.store.Bodies) > 0 {
					s.phase(telemetry.PhaseShapeMatch)
					s.matchShapes()
				}
			}
		}

		s.phase(telemetry.PhaseIntegrate)
		s.updateVelocities(sdt)
		s.commitPositions()

		s.phase(telemetry.PhasePostFX)
		s.fluidOmegas()
		s.applyVorticity(sdt)
		if s.useAkinci {
			s.fluidNormals()
			s.applyAkinciTension(dt)
		}
		s.applyXSPH()
	}

	if pick != nil && pick.ID >= 0 && pick.ID < n {
		s.SetParticle(pick.ID, pick.Position, pick.Velocity)
	}
}
