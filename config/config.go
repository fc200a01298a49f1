// Package config provides configuration loading and access for the solver.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all solver configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Capacity  CapacityConfig  `yaml:"capacity"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Friction  FrictionConfig  `yaml:"friction"`
	Grid      GridConfig      `yaml:"grid"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Solver    SolverConfig    `yaml:"solver"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds viewer display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CapacityConfig holds the fixed arena sizes for particle and body storage.
type CapacityConfig struct {
	MaxParticles             int `yaml:"max_particles"`
	MaxRigidBodies           int `yaml:"max_rigid_bodies"`
	MaxParticlesPerRigidBody int `yaml:"max_particles_per_rigid_body"`
}

// PhysicsConfig holds integration parameters.
type PhysicsConfig struct {
	DT             float64   `yaml:"dt"`        // full step length in seconds
	SubSteps       int       `yaml:"sub_steps"` // sub-steps per full step
	Gravity        []float64 `yaml:"gravity"`
	ParticleRadius float64   `yaml:"particle_radius"`
	SleepEpsilon   float64   `yaml:"sleep_epsilon"`  // solid commit threshold
	MassScalingK   float64   `yaml:"mass_scaling_k"` // exponent for height mass scaling
}

// FrictionConfig holds friction coefficients shared by plane and particle
// contacts. Both may be zero.
type FrictionConfig struct {
	Static  float64 `yaml:"static"`
	Dynamic float64 `yaml:"dynamic"`
}

// GridConfig holds the uniform spatial grid dimensions.
type GridConfig struct {
	DimX       int       `yaml:"dim_x"`
	DimY       int       `yaml:"dim_y"`
	DimZ       int       `yaml:"dim_z"`
	CellSize   float64   `yaml:"cell_size"`
	Origin     []float64 `yaml:"origin"`
	MaxPerCell int       `yaml:"max_per_cell"` // neighbour scan cap per cell
}

// FluidConfig holds the density constraint and fluid post-pass parameters.
type FluidConfig struct {
	KernelRadius      float64 `yaml:"kernel_radius"`
	RestDensity       float64 `yaml:"rest_density"`
	RelaxationEpsilon float64 `yaml:"relaxation_epsilon"` // λ denominator relaxation
	SCorrK            float64 `yaml:"s_corr_k"`
	SCorrN            float64 `yaml:"s_corr_n"`
	VorticityScale    float64 `yaml:"vorticity_scale"`
	SurfaceTension    float64 `yaml:"surface_tension"`
	XSPHC             float64 `yaml:"xsph_c"`

	// UseAkinciCohesionTension switches the λ clamp on and sCorr off together.
	// Enabling both attraction mechanisms would double-count surface tension.
	UseAkinciCohesionTension bool `yaml:"use_akinci_cohesion_tension"`
}

// SolverConfig holds iteration counts for the projection pipeline.
type SolverConfig struct {
	StabilizationRounds     int  `yaml:"stabilization_rounds"`
	OuterIterations         int  `yaml:"outer_iterations"` // grid rebuilds per sub-step
	InnerIterations         int  `yaml:"inner_iterations"` // projection passes per rebuild
	RotationExtractionIters int  `yaml:"rotation_extraction_iters"`
	ParticleContactFriction bool `yaml:"particle_contact_friction"` // pairwise contact + friction pass
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow    int     `yaml:"perf_window"`    // steps averaged per perf report
	StatsInterval float64 `yaml:"stats_interval"` // not read; headless runs sample density once per perf window
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32           float32 // Physics.DT as float32
	Radius32       float32 // Physics.ParticleRadius as float32
	GravityX       float32
	GravityY       float32
	GravityZ       float32
	CellCount      int // DimX*DimY*DimZ
	FluidCellRange int // ceil(kernel_radius / cell_size), in cells
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()

	return cfg, nil
}

// Default returns a config built from the embedded defaults only.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults failed to parse: %v", err))
	}
	return cfg
}

// ComputeDerived recalculates derived values. Load calls it; call it again
// after mutating the config programmatically.
func (c *Config) ComputeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.Radius32 = float32(c.Physics.ParticleRadius)

	if len(c.Physics.Gravity) == 3 {
		c.Derived.GravityX = float32(c.Physics.Gravity[0])
		c.Derived.GravityY = float32(c.Physics.Gravity[1])
		c.Derived.GravityZ = float32(c.Physics.Gravity[2])
	}

	c.Derived.CellCount = c.Grid.DimX * c.Grid.DimY * c.Grid.DimZ

	// Neighbour search range for the fluid kernel, in whole cells.
	if c.Grid.CellSize > 0 {
		r := int(c.Fluid.KernelRadius / c.Grid.CellSize)
		if float64(r)*c.Grid.CellSize < c.Fluid.KernelRadius {
			r++
		}
		if r < 1 {
			r = 1
		}
		c.Derived.FluidCellRange = r
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
