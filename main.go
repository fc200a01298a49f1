package main

import (
	"flag"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/PeterZhouSZ/brasstower/config"
	"github.com/PeterZhouSZ/brasstower/renderer"
	"github.com/PeterZhouSZ/brasstower/scene"
	"github.com/PeterZhouSZ/brasstower/solver"
	"github.com/PeterZhouSZ/brasstower/telemetry"
	"github.com/PeterZhouSZ/brasstower/vecmath"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	sceneName := flag.String("scene", "dambreak", "Scene: dambreak, granularpile, boxstack, splash")
	maxSteps := flag.Int("max-steps", 0, "Stop after N steps (0 = unlimited, headless only)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	akinci := flag.Bool("akinci", false, "Enable Akinci cohesion/tension (overrides config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *akinci {
		cfg.Fluid.UseAkinciCohesionTension = true
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	s, err := solver.New(cfg)
	if err != nil {
		slog.Error("failed to create solver", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := scene.Build(*sceneName, s, cfg.Derived.Radius32); err != nil {
		slog.Error("failed to build scene", "scene", *sceneName, "error", err)
		os.Exit(1)
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	s.SetPerfCollector(perf)

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output dir", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to snapshot config", "error", err)
	}

	slog.Info("scene ready",
		"scene", *sceneName,
		"particles", s.NumParticles(),
		"sub_steps", cfg.Physics.SubSteps,
		"akinci", cfg.Fluid.UseAkinciCohesionTension,
	)

	if *headless {
		runHeadless(s, cfg, perf, output, *maxSteps)
		return
	}
	runViewer(s, cfg, perf)
}

// runHeadless steps the solver as fast as possible, emitting perf and density
// telemetry per window.
func runHeadless(s *solver.Solver, cfg *config.Config, perf *telemetry.PerfCollector, output *telemetry.OutputManager, maxSteps int) {
	window := cfg.Telemetry.PerfWindow
	band := 0.1

	for step := int64(1); ; step++ {
		perf.StartStep()
		s.Step(cfg.Physics.SubSteps, cfg.Derived.DT32, nil)
		perf.EndStep()

		if step%int64(window) == 0 {
			stats := perf.Stats()
			stats.LogStats()
			if err := output.WritePerf(stats.Rows(step)); err != nil {
				slog.Error("perf output failed", "error", err)
			}

			density := telemetry.ComputeDensityStats(step, fluidDensities(s), cfg.Fluid.RestDensity, band)
			density.LogStats()
			if err := output.WriteDensity(density); err != nil {
				slog.Error("density output failed", "error", err)
			}
		}

		if maxSteps > 0 && step >= int64(maxSteps) {
			slog.Info("max steps reached", "step", step)
			return
		}
	}
}

// fluidDensities snapshots the density values of fluid particles.
func fluidDensities(s *solver.Solver) []float32 {
	st := s.Store()
	out := make([]float32, 0, st.Count())
	for i := 0; i < st.Count(); i++ {
		if st.Phases[i] < 0 {
			out = append(out, st.Densities[i])
		}
	}
	return out
}

// runViewer opens the raylib window, steps the solver per frame, and supports
// mouse dragging of particles through the pick pin.
func runViewer(s *solver.Solver, cfg *config.Config, perf *telemetry.PerfCollector) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "brasstower")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	view := renderer.New(cfg.Derived.Radius32)
	paused := false
	akinci := cfg.Fluid.UseAkinciCohesionTension

	pickedID := -1
	pickDepth := float32(0)

	for !rl.WindowShouldClose() {
		view.UpdateCamera()

		// Mouse picking: grab on press, drag at fixed depth, release to drop.
		if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
			pickedID, pickDepth = view.PickParticle(s.Positions(), cfg.Derived.Radius32*4)
		}
		if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
			pickedID = -1
		}

		var pick *solver.Pick
		if pickedID >= 0 {
			pick = &solver.Pick{
				ID:       pickedID,
				Position: view.RayPoint(pickDepth),
				Velocity: vecmath.Vec3{},
			}
		}

		if !paused {
			perf.StartStep()
			s.Step(cfg.Physics.SubSteps, cfg.Derived.DT32, pick)
			perf.EndStep()
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Color{R: 18, G: 18, B: 24, A: 255})

		view.Draw(s.Positions(), s.Store().Phases, pickedID)

		paused = gui.CheckBox(rl.Rectangle{X: 16, Y: 16, Width: 20, Height: 20}, "pause", paused)
		newAkinci := gui.CheckBox(rl.Rectangle{X: 16, Y: 44, Width: 20, Height: 20}, "akinci tension", akinci)
		if newAkinci != akinci {
			akinci = newAkinci
			s.SetAkinciCohesion(akinci)
		}

		rl.DrawFPS(int32(cfg.Screen.Width)-96, 16)
		rl.EndDrawing()
	}
}
