package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one stage of the solver step pipeline. The set is closed:
// it mirrors the kernel groups the orchestrator runs, in order.
type Phase int

const (
	PhaseIntegrate Phase = iota
	PhaseStabilize
	PhaseGrid
	PhasePlanes
	PhaseContacts
	PhaseFluid
	PhaseShapeMatch
	PhasePostFX
	numPhases
)

var phaseNames = [numPhases]string{
	"integrate",
	"stabilize",
	"grid",
	"planes",
	"contacts",
	"fluid",
	"shape_match",
	"post_fx",
}

// String returns the phase's snake_case name.
func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// PerfCollector accumulates solver phase timings over a fixed window of
// steps. Nothing is retained per step: durations add into one accumulator
// array per phase, and when the window fills the collector snapshots the
// aggregate and starts a fresh window. A phase may start any number of times
// within a step (the projection phases run once per inner iteration).
type PerfCollector struct {
	window int

	// Accumulation for the window in progress.
	phaseTotal [numPhases]time.Duration
	stepTotal  time.Duration
	stepMin    time.Duration
	stepMax    time.Duration
	steps      int

	// In-flight step state.
	stepStart  time.Time
	phaseStart time.Time
	current    Phase
	inPhase    bool

	// Snapshot of the last completed window.
	last     PerfStats
	haveLast bool
}

// NewPerfCollector creates a collector that aggregates over window steps
// (e.g. 60 for one second at 60 steps/s).
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{window: window}
}

// StartStep begins timing a new solver step.
func (p *PerfCollector) StartStep() {
	p.stepStart = time.Now()
	p.inPhase = false
}

// StartPhase attributes subsequent time to the given phase, closing out the
// previous one.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	if p.inPhase {
		p.phaseTotal[p.current] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.current = phase
	p.inPhase = true
}

// EndStep closes the current step. When this completes the window, the
// aggregate is snapshotted and the accumulators reset.
func (p *PerfCollector) EndStep() {
	now := time.Now()
	if p.inPhase {
		p.phaseTotal[p.current] += now.Sub(p.phaseStart)
		p.inPhase = false
	}

	d := now.Sub(p.stepStart)
	p.stepTotal += d
	if p.steps == 0 || d < p.stepMin {
		p.stepMin = d
	}
	if d > p.stepMax {
		p.stepMax = d
	}
	p.steps++

	if p.steps >= p.window {
		p.last = p.aggregate()
		p.haveLast = true
		p.phaseTotal = [numPhases]time.Duration{}
		p.stepTotal, p.stepMin, p.stepMax = 0, 0, 0
		p.steps = 0
	}
}

// Stats returns the last completed window's aggregate, or the partial
// current window if none has completed yet.
func (p *PerfCollector) Stats() PerfStats {
	if p.haveLast {
		return p.last
	}
	return p.aggregate()
}

func (p *PerfCollector) aggregate() PerfStats {
	var s PerfStats
	if p.steps == 0 {
		return s
	}

	n := time.Duration(p.steps)
	s.AvgStepDuration = p.stepTotal / n
	s.MinStepDuration = p.stepMin
	s.MaxStepDuration = p.stepMax
	if s.AvgStepDuration > 0 {
		s.StepsPerSecond = float64(time.Second) / float64(s.AvgStepDuration)
	}

	for ph := Phase(0); ph < numPhases; ph++ {
		avg := p.phaseTotal[ph] / n
		s.Phases[ph].Avg = avg
		if s.AvgStepDuration > 0 {
			s.Phases[ph].Pct = float64(avg) / float64(s.AvgStepDuration) * 100
		}
	}
	return s
}

// PhaseStat is one phase's share of the average step.
type PhaseStat struct {
	Avg time.Duration
	Pct float64
}

// PerfStats is the aggregate over one window of steps.
type PerfStats struct {
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration
	StepsPerSecond  float64

	Phases [numPhases]PhaseStat
}

// Phase returns the stats for one phase.
func (s PerfStats) Phase(p Phase) PhaseStat {
	return s.Phases[p]
}

// LogStats logs the window aggregate.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_step_us", s.AvgStepDuration.Microseconds(),
		"min_step_us", s.MinStepDuration.Microseconds(),
		"max_step_us", s.MaxStepDuration.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if pct := s.Phases[ph].Pct; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// PhaseRowCSV is one long-format CSV row: a window, a phase, its share. The
// pseudo-phase "step" carries the whole-step average.
type PhaseRowCSV struct {
	WindowEnd int64   `csv:"window_end"`
	Phase     string  `csv:"phase"`
	AvgUS     int64   `csv:"avg_us"`
	Pct       float64 `csv:"pct"`
}

// Rows flattens the aggregate into CSV rows, one per phase plus the step
// total.
func (s PerfStats) Rows(windowEnd int64) []PhaseRowCSV {
	rows := make([]PhaseRowCSV, 0, numPhases+1)
	rows = append(rows, PhaseRowCSV{
		WindowEnd: windowEnd,
		Phase:     "step",
		AvgUS:     s.AvgStepDuration.Microseconds(),
		Pct:       100,
	})
	for ph := Phase(0); ph < numPhases; ph++ {
		rows = append(rows, PhaseRowCSV{
			WindowEnd: windowEnd,
			Phase:     ph.String(),
			AvgUS:     s.Phases[ph].Avg.Microseconds(),
			Pct:       s.Phases[ph].Pct,
		})
	}
	return rows
}
