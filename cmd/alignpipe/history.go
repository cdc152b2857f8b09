package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/alignpipe/internal/config"
	"github.com/nao1215/alignpipe/internal/database"
	"github.com/nao1215/alignpipe/internal/report"
)

// shortIDLength is the number of run ID characters shown in listings.
const shortIDLength = 8

// NewHistoryCmd creates the history command.
// This command lists and shows pipeline runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded pipeline runs",
		Long: `History lists the pipeline runs recorded in the history database,
newest first, or shows one run in detail.

Every run is recorded unless --no-history is given. A run can be selected
by its full ID or by any unique prefix of it.

Examples:
  # List recent runs
  alignpipe history

  # Show one run with its stage table
  alignpipe history --show 0b6a8f3e

  # Export a run as JSON or Markdown
  alignpipe history --show 0b6a8f3e --json
  alignpipe history --show 0b6a8f3e --markdown

  # Forget runs older than 30 days
  alignpipe history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().StringP("show", "s", "",
		"Show the run with this ID or ID prefix")
	cmd.Flags().Duration("prune", 0,
		"Delete runs that started longer ago than this duration")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the run in JSON format (with --show)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the run in Markdown format (with --show)")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	showID, err := flags.GetString("show")
	if err != nil {
		return err
	}
	prune, err := flags.GetDuration("prune")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate flags before opening the database
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	if (jsonOutput || markdownOutput) && showID == "" {
		return errors.New("--json and --markdown require --show")
	}
	if prune < 0 {
		return errors.New("--prune must be a positive duration")
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case prune > 0:
		return pruneRuns(ctx, out, db, prune)
	case showID != "":
		return showRun(ctx, out, db, showID, jsonOutput, markdownOutput)
	default:
		return listRuns(ctx, out, db, limit)
	}
}

// listRuns prints a table of stored runs.
func listRuns(ctx context.Context, w io.Writer, db *database.RunDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No pipeline runs recorded yet.")
		fmt.Fprintln(w, "\nRun 'alignpipe' to execute the pipeline.")
		return nil
	}

	fmt.Fprintf(w, "Pipeline runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-8s  %-19s  %-9s  %-6s  %-3s  %-9s  %s\n",
		"ID", "Date", "Status", "Stages", "DPO", "Duration", "Failed Stage")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 76))

	for _, meta := range runs {
		dpo := "no"
		if meta.IncludeDPO {
			dpo = "yes"
		}
		failed := "-"
		if meta.FailedStage != "" {
			failed = string(meta.FailedStage)
		}
		fmt.Fprintf(w, "  %-8s  %-19s  %-9s  %-6d  %-3s  %-9s  %s\n",
			shortID(meta.ID),
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			meta.Status,
			meta.StagesRun,
			dpo,
			formatDuration(meta.Duration()),
			failed,
		)
	}

	fmt.Fprintln(w, "\nUse 'alignpipe history --show <id>' to see the stages of a run.")
	return nil
}

// showRun prints one stored run in the requested format.
func showRun(ctx context.Context, w io.Writer, db *database.RunDB, id string, jsonOutput, markdownOutput bool) error {
	runReport, err := db.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", id, err)
	}
	if runReport == nil {
		return fmt.Errorf("run %s not found (use 'alignpipe history' to list runs)", id)
	}

	var writer report.Writer
	switch {
	case jsonOutput:
		writer = report.NewJSONWriter(w, report.WithPrettyPrint())
	case markdownOutput:
		writer = report.NewMarkdownWriter(w)
	default:
		fmt.Fprintf(w, "Run %s\n", runReport.ID)
		fmt.Fprintf(w, "Started: %s\n", runReport.StartedAt.Local().Format("2006-01-02 15:04:05"))
		writer = report.NewSimpleWriter(w, report.WithVerbose(true))
	}

	_, err = writer.Write(runReport)
	return err
}

// pruneRuns deletes runs older than age.
func pruneRuns(ctx context.Context, w io.Writer, db *database.RunDB, age time.Duration) error {
	deleted, err := db.DeleteRunsBefore(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted %d run(s) older than %s.\n", deleted, age)
	return nil
}

// shortID truncates a run ID for listings.
func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// formatDuration renders a run duration, or "-" when it is unknown.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
