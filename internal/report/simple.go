package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/alignpipe/internal/model"
)

// ruleWidth matches the stage banner width.
const ruleWidth = 80

// SimpleWriter outputs the plain-text run summary printed at the end of a run.
type SimpleWriter struct {
	baseWriter

	// locations are the artifact paths named in the success summary.
	locations Locations

	// verbose adds a per-stage table to the summary.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithLocations sets the artifact paths named in the success summary.
func WithLocations(loc Locations) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.locations = loc
	}
}

// WithVerbose enables the per-stage table.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		locations:  DefaultLocations(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary for the report's final status.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	switch report.Status {
	case model.RunStatusSucceeded:
		w.writeSuccess(&sb, rule)
	case model.RunStatusCancelled:
		w.writeStopped(&sb, rule, "PIPELINE CANCELLED", report)
	default:
		w.writeStopped(&sb, rule, "PIPELINE FAILED", report)
	}

	if w.verbose {
		w.writeStages(&sb, report)
	}

	sb.WriteString(rule)
	sb.WriteString("\n\n")

	return w.output.Write([]byte(sb.String()))
}

// writeSuccess writes the completion banner, artifact locations and next steps.
func (w *SimpleWriter) writeSuccess(sb *strings.Builder, rule string) {
	fmt.Fprintf(sb, "\n%s\nPIPELINE COMPLETED SUCCESSFULLY\n%s\n", rule, rule)
	fmt.Fprintf(sb, "\nResults saved in %s\n", dirDisplay(w.locations.ResultsDir))
	fmt.Fprintf(sb, "Models saved in %s\n", dirDisplay(w.locations.ModelsDir))
	sb.WriteString("\nNext steps:\n")
	for i, step := range w.locations.NextSteps() {
		fmt.Fprintf(sb, "%d. %s\n", i+1, step)
	}
}

// writeStopped writes the summary of a failed or cancelled run.
func (w *SimpleWriter) writeStopped(sb *strings.Builder, rule, title string, report *model.RunReport) {
	fmt.Fprintf(sb, "\n%s\n%s\n%s\n\n", rule, title, rule)

	if report.FailedStage != "" {
		for _, s := range report.Stages {
			if s.Stage == report.FailedStage {
				fmt.Fprintf(sb, "Failed stage:  %s (exit code %d)\n", s.Description, s.ExitCode)
				break
			}
		}
	} else if report.ErrorMessage != "" {
		fmt.Fprintf(sb, "Reason:        %s\n", report.ErrorMessage)
	}

	succeeded := 0
	for _, s := range report.Stages {
		if s.Status == model.StageStatusSucceeded {
			succeeded++
		}
	}
	fmt.Fprintf(sb, "Completed:     %d stage(s)\n", succeeded)
	fmt.Fprintf(sb, "Run ID:        %s\n", report.ID)
}

// writeStages writes one line per recorded stage.
func (w *SimpleWriter) writeStages(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\nStages:\n")
	for _, s := range report.Stages {
		switch s.Status {
		case model.StageStatusSkipped:
			fmt.Fprintf(sb, "  [-] %-15s skipped\n", s.Stage)
		case model.StageStatusFailed:
			fmt.Fprintf(sb, "  [!] %-15s failed with code %d after %s\n", s.Stage, s.ExitCode, s.Duration.Round(time.Second))
		default:
			fmt.Fprintf(sb, "  [+] %-15s done in %s\n", s.Stage, s.Duration.Round(time.Second))
		}
	}
	fmt.Fprintf(sb, "\nTotal time: %s\n", report.Duration().Round(time.Second))
}
