// Package model defines the data structures shared across alignpipe.
//
// This package contains the following main types:
//   - Command: a program name plus an ordered argument list
//   - Stage: one external script invocation in the alignment pipeline
//   - RunReport: the record of a single pipeline run
//   - StageResult: the outcome of one stage inside a run
//
// The run types are serializable to JSON for summary output and for the
// run history database.
package model
