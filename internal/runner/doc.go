// Package runner executes a single pipeline stage as a child process.
//
// A Runner prints the stage banner and command line, hands the command to an
// Executor, and turns a non-zero exit code into a *StageError. The Executor
// interface is the only place processes are started, so the pipeline can be
// driven by a fake in tests.
package runner
