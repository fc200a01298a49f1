package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DensityStats summarizes the per-particle fluid density distribution over
// one sample. The relaxation band is the fraction of fluid particles whose
// density error |ρ-ρ₀|/ρ₀ stays within the given bound.
type DensityStats struct {
	Step       int64   `csv:"step"`
	Fluid      int     `csv:"fluid_particles"`
	Mean       float64 `csv:"density_mean"`
	P10        float64 `csv:"density_p10"`
	P50        float64 `csv:"density_p50"`
	P90        float64 `csv:"density_p90"`
	WithinBand float64 `csv:"within_band"`
}

// ComputeDensityStats aggregates fluid densities against the rest density.
// band is the relative error bound for the within-band fraction, e.g. 0.1.
func ComputeDensityStats(step int64, densities []float32, restDensity, band float64) DensityStats {
	ds := DensityStats{Step: step, Fluid: len(densities)}
	if len(densities) == 0 {
		return ds
	}

	values := make([]float64, len(densities))
	within := 0
	for i, d := range densities {
		values[i] = float64(d)
		rel := (float64(d) - restDensity) / restDensity
		if rel < 0 {
			rel = -rel
		}
		if rel <= band {
			within++
		}
	}
	sort.Float64s(values)

	ds.Mean = stat.Mean(values, nil)
	ds.P10 = stat.Quantile(0.1, stat.Empirical, values, nil)
	ds.P50 = stat.Quantile(0.5, stat.Empirical, values, nil)
	ds.P90 = stat.Quantile(0.9, stat.Empirical, values, nil)
	ds.WithinBand = float64(within) / float64(len(densities))
	return ds
}

// LogStats logs the density distribution.
func (d DensityStats) LogStats() {
	slog.Info("density",
		"step", d.Step,
		"fluid", d.Fluid,
		"mean", d.Mean,
		"p10", d.P10,
		"p50", d.P50,
		"p90", d.P90,
		"within_band", d.WithinBand,
	)
}
