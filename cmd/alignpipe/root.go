package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/alignpipe/internal/runner"
)

// exitCodeInterrupted is the conventional exit status after SIGINT.
const exitCodeInterrupted = 130

// NewRootCmd creates the root command for alignpipe.
// Running it without a subcommand executes the pipeline.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alignpipe",
		Short: "Run the complete model alignment pipeline",
		Long: `alignpipe runs the model alignment workflow stage by stage:

  1. Prepare the evaluation dataset
  2. Evaluate the baseline model
  3. Train a QLoRA adapter
  4. Evaluate the QLoRA model
  5. Train a DPO adapter          (only with --include_dpo)
  6. Evaluate the DPO model       (only with --include_dpo)
  7. Compare the results

Each stage is an external Python script run as a child process. The first
stage that exits non-zero stops the pipeline, and alignpipe exits with that
stage's exit code. Use the --skip_* flags to resume after a failure.

Examples:
  # Run the whole pipeline without DPO
  alignpipe

  # Include DPO and skip the baseline evaluation
  alignpipe --include_dpo --skip_baseline

  # Show what would run
  alignpipe --include_dpo --dry-run

  # Save a Markdown summary of the run
  alignpipe --markdown --output results/run.md`,
		Args:          cobra.NoArgs,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPipelineCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addPipelineFlags(cmd)

	// Add subcommands
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the run's status.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		code := exitCode(err)
		var stageErr *runner.StageError
		if !errors.As(err, &stageErr) {
			// Stage failures were already reported by the runner.
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}

// exitCode maps an error returned by the root command to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return exitCodeInterrupted
	}
	var stageErr *runner.StageError
	if errors.As(err, &stageErr) {
		return stageErr.ProcessExitCode()
	}
	return 1
}
