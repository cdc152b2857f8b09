package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nao1215/alignpipe/internal/model"
)

// bannerWidth is the width of the "=" rule printed around stage descriptions.
const bannerWidth = 80

// Banner returns the horizontal rule printed around stage descriptions.
func Banner() string {
	return strings.Repeat("=", bannerWidth)
}

// Result is the outcome of one stage execution.
type Result struct {
	// ExitCode is the stage's exit code; -1 if it never started.
	ExitCode int

	// Duration is how long the process ran.
	Duration time.Duration
}

// Runner executes stages one at a time through an Executor.
type Runner struct {
	executor Executor
	out      io.Writer
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWriter sets where banners and error lines are printed. Default: stdout.
func WithWriter(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner that starts processes with executor.
func New(executor Executor, opts ...Option) *Runner {
	r := &Runner{
		executor: executor,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run prints the stage banner, executes the stage command and waits for it.
// It returns nil when the process exits with code zero and a *StageError
// otherwise. The Result is filled in both cases.
func (r *Runner) Run(ctx context.Context, stage model.Stage) (Result, error) {
	fmt.Fprintf(r.out, "\n%s\n%s\n%s\n", Banner(), stage.Description, Banner())
	fmt.Fprintf(r.out, "Command: %s\n\n", stage.Command)

	r.logger.Debug("starting stage process",
		"stage", stage.ID,
		"program", stage.Command.Program,
		"args", stage.Command.Args,
	)

	start := time.Now()
	code, err := r.executor.Run(ctx, stage.Command)
	result := Result{ExitCode: code, Duration: time.Since(start)}

	if err == nil && code == 0 {
		r.logger.Debug("stage process exited",
			"stage", stage.ID,
			"exit_code", code,
			"duration", result.Duration,
		)
		return result, nil
	}

	if err != nil && code == 0 {
		result.ExitCode = -1
	}

	fmt.Fprintf(r.out, "\nERROR: %s failed with code %d\n", stage.Description, result.ExitCode)
	r.logger.Error("stage failed",
		"stage", stage.ID,
		"exit_code", result.ExitCode,
		"error", err,
	)

	return result, &StageError{
		Stage:       stage.ID,
		Description: stage.Description,
		ExitCode:    result.ExitCode,
		Err:         err,
	}
}
