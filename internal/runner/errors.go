package runner

import (
	"fmt"

	"github.com/nao1215/alignpipe/internal/model"
)

// StageError reports that a stage process exited with a non-zero code or
// could not be started. It is the only failure kind a stage can produce.
type StageError struct {
	// Stage identifies the failed stage.
	Stage model.StageID

	// Description is the stage banner text.
	Description string

	// ExitCode is the process exit code, or -1 when the process never started.
	ExitCode int

	// Err is the underlying start error, if any.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed with code %d: %v", e.Description, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s failed with code %d", e.Description, e.ExitCode)
}

// Unwrap returns the underlying start error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// ProcessExitCode is the exit status the alignpipe process should use for
// this failure: the stage's own code when positive, otherwise 1.
func (e *StageError) ProcessExitCode() int {
	if e.ExitCode > 0 {
		return e.ExitCode
	}
	return 1
}
