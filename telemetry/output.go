package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/PeterZhouSZ/brasstower/config"
)

// OutputManager handles structured run output with CSV logging. A nil
// OutputManager is valid and discards everything.
type OutputManager struct {
	dir         string
	perfFile    *os.File
	densityFile *os.File

	perfHeaderWritten    bool
	densityHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	perfPath := filepath.Join(dir, "perf.csv")
	f, err := os.Create(perfPath)
	if err != nil {
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	densityPath := filepath.Join(dir, "density.csv")
	f, err = os.Create(densityPath)
	if err != nil {
		om.perfFile.Close()
		return nil, fmt.Errorf("creating density.csv: %w", err)
	}
	om.densityFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML alongside the CSVs.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WritePerf appends one window's phase rows to perf.csv.
func (om *OutputManager) WritePerf(rows []PhaseRowCSV) error {
	if om == nil {
		return nil
	}

	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(rows, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(rows, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}
	return nil
}

// WriteDensity writes one density stats record to density.csv.
func (om *OutputManager) WriteDensity(stats DensityStats) error {
	if om == nil {
		return nil
	}

	records := []DensityStats{stats}
	if !om.densityHeaderWritten {
		if err := gocsv.Marshal(records, om.densityFile); err != nil {
			return fmt.Errorf("writing density: %w", err)
		}
		om.densityHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.densityFile); err != nil {
			return fmt.Errorf("writing density: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the CSV files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	if err := om.perfFile.Close(); err != nil {
		firstErr = err
	}
	if err := om.densityFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
