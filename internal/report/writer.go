package report

import (
	"io"
	"path/filepath"

	"github.com/nao1215/alignpipe/internal/model"
)

// Writer defines the interface for run summary output.
type Writer interface {
	// Write outputs the run report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// It is used to print the terminal banner and save a formatted summary
// to a file for the same run.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Locations tells the reader where the pipeline left its artifacts.
type Locations struct {
	// ResultsDir holds the evaluation CSV files.
	ResultsDir string

	// ModelsDir holds the trained adapters.
	ModelsDir string

	// ComparisonMetrics is the CSV written by the comparison stage.
	ComparisonMetrics string

	// Visualization is the plot written by the comparison stage.
	Visualization string
}

// DefaultLocations returns the artifact locations for the default layout.
func DefaultLocations() Locations {
	return Locations{
		ResultsDir:        "results",
		ModelsDir:         "models",
		ComparisonMetrics: filepath.Join("results", "comparison_metrics.csv"),
		Visualization:     filepath.Join("results", "model_comparison.png"),
	}
}

// NextSteps returns the follow-up actions printed after a successful run.
func (l Locations) NextSteps() []string {
	return []string{
		"Review comparison metrics in " + l.ComparisonMetrics,
		"Check visualizations in " + l.Visualization,
		"Analyze logs in W&B dashboard",
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// dirDisplay renders a directory with a trailing separator.
func dirDisplay(dir string) string {
	if dir == "" {
		return "." + string(filepath.Separator)
	}
	if dir[len(dir)-1] == filepath.Separator {
		return dir
	}
	return dir + string(filepath.Separator)
}
