package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/alignpipe/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format.
type MarkdownWriter struct {
	baseWriter

	// locations are the artifact paths listed under next steps.
	locations Locations
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownLocations sets the artifact paths listed under next steps.
func WithMarkdownLocations(loc Locations) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.locations = loc
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		locations:  DefaultLocations(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeStages(md, report)
	w.writeDurationChart(md, report)
	if report.Succeeded() {
		w.writeNextSteps(md)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the run property table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Alignment Pipeline Run")
	md.PlainText("")

	dpo := "no"
	if report.IncludeDPO {
		dpo = "yes"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.ID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Second).String()},
			{"DPO Included", dpo},
			{"Status", statusText(report.Status)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell for the property table.
func statusText(status model.RunStatus) string {
	switch status {
	case model.RunStatusSucceeded:
		return "✅ Succeeded"
	case model.RunStatusFailed:
		return "❌ Failed"
	case model.RunStatusCancelled:
		return "⚠️ Cancelled"
	default:
		return "⏳ Running"
	}
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	switch report.Status {
	case model.RunStatusSucceeded:
		md.Tip("Pipeline completed successfully.")
	case model.RunStatusFailed:
		if report.FailedStage == "" {
			md.Cautionf("The run failed: %s", report.ErrorMessage)
			break
		}
		md.Cautionf("%s failed. Later stages were not run.", report.FailedStage.Description())
	case model.RunStatusCancelled:
		md.Warningf("The run was cancelled after %d stage(s).", len(report.Executed()))
	default:
		md.Note("The run has not finished.")
	}
	md.PlainText("")
}

// writeStages writes the per-stage table.
func (w *MarkdownWriter) writeStages(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Stages")
	md.PlainText("")

	if len(report.Stages) == 0 {
		md.PlainText("No stage was reached.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		exitCode, duration, command := "-", "-", "-"
		if s.Status != model.StageStatusSkipped {
			exitCode = strconv.Itoa(s.ExitCode)
			duration = s.Duration.Round(time.Second).String()
			command = "`" + truncateString(s.Command, 60) + "`"
		}
		rows = append(rows, []string{
			s.Description,
			stageStatusText(s.Status),
			exitCode,
			duration,
			command,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Status", "Exit Code", "Duration", "Command"},
		Rows:   rows,
	})
	md.PlainText("")
}

// stageStatusText returns the status cell for the stage table.
func stageStatusText(status model.StageStatus) string {
	switch status {
	case model.StageStatusSucceeded:
		return "✅ done"
	case model.StageStatusFailed:
		return "❌ failed"
	default:
		return "⏭️ skipped"
	}
}

// writeDurationChart writes a mermaid pie chart of time spent per stage.
func (w *MarkdownWriter) writeDurationChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Time per Stage (seconds)"),
		piechart.WithShowData(true),
	)

	slices := 0
	for _, s := range report.Stages {
		seconds := uint64(s.Duration / time.Second)
		if s.Status == model.StageStatusSkipped || seconds == 0 {
			continue
		}
		chart.LabelAndIntValue(string(s.Stage), seconds)
		slices++
	}
	if slices == 0 {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeNextSteps writes the follow-up list after a successful run.
func (w *MarkdownWriter) writeNextSteps(md *markdown.Markdown) {
	md.H2("Next Steps")
	md.PlainText("")
	md.OrderedList(w.locations.NextSteps()...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [alignpipe](https://github.com/nao1215/alignpipe)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
