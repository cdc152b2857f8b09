package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/nao1215/alignpipe/internal/config"
	"github.com/nao1215/alignpipe/internal/model"
)

// Executor starts a command, waits for it, and returns its exit code.
// A non-nil error means the process could not be started or waited for;
// the exit code is then -1.
type Executor interface {
	Run(ctx context.Context, cmd model.Command) (int, error)
}

// ExecExecutor runs commands with os/exec. Children inherit the configured
// output streams, which default to the parent's stdout and stderr.
type ExecExecutor struct {
	// dir is the working directory of every child. Empty means the current one.
	dir string

	// env holds extra variables merged under the parent environment.
	env map[string]string

	stdout io.Writer
	stderr io.Writer
}

// ExecOption configures an ExecExecutor.
type ExecOption func(*ExecExecutor)

// WithDir sets the working directory of the child processes.
func WithDir(dir string) ExecOption {
	return func(e *ExecExecutor) {
		e.dir = dir
	}
}

// WithEnv adds variables to the child environment. Variables already set in
// the parent environment are not overridden.
func WithEnv(env map[string]string) ExecOption {
	return func(e *ExecExecutor) {
		e.env = env
	}
}

// WithOutput redirects the child's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) ExecOption {
	return func(e *ExecExecutor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// NewExecExecutor creates an ExecExecutor.
func NewExecExecutor(opts ...ExecOption) *ExecExecutor {
	e := &ExecExecutor{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run implements Executor.
func (e *ExecExecutor) Run(ctx context.Context, cmd model.Command) (int, error) {
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...) //nolint:gosec // stage commands come from the runner's own configuration
	c.Dir = e.dir
	c.Stdin = os.Stdin
	c.Stdout = e.stdout
	c.Stderr = e.stderr
	c.Env = config.MergeEnv(os.Environ(), e.env)

	err := c.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal, for example after context cancellation.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return code, ctxErr
			}
			return code, err
		}
		return code, nil
	}
	return -1, err
}
