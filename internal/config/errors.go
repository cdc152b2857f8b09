package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrEmptyPython is returned when no interpreter is configured.
	ErrEmptyPython = errors.New("invalid python: interpreter must not be empty")

	// ErrInvalidNumSamples is returned when the sample count is not positive.
	ErrInvalidNumSamples = errors.New("invalid number of samples: must be positive")

	// ErrEmptyDirectory is returned when the data, models or results directory is empty.
	ErrEmptyDirectory = errors.New("invalid directory: data, models and results directories must not be empty")

	// ErrEmptyScript is returned when a stage script path is empty.
	ErrEmptyScript = errors.New("invalid script: every stage script path must be set")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidLogFormat is returned when the log format is neither text nor json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be 'text' or 'json'")
)
