package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal (or current) state of a pipeline run.
type RunStatus string

const (
	// RunStatusRunning means stages are still being executed.
	RunStatusRunning RunStatus = "running"

	// RunStatusSucceeded means every non-skipped stage exited with code zero.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed means a stage exited non-zero and later stages never ran.
	RunStatusFailed RunStatus = "failed"

	// RunStatusCancelled means the run was interrupted between stages.
	RunStatusCancelled RunStatus = "cancelled"
)

// StageStatus is the outcome of a single stage.
type StageStatus string

const (
	// StageStatusSucceeded means the stage process exited with code zero.
	StageStatusSucceeded StageStatus = "succeeded"

	// StageStatusFailed means the stage process exited non-zero or could not start.
	StageStatusFailed StageStatus = "failed"

	// StageStatusSkipped means a flag disabled the stage.
	StageStatusSkipped StageStatus = "skipped"
)

// StageResult records what happened to one stage during a run.
type StageResult struct {
	// Stage identifies the stage.
	Stage StageID `json:"stage"`

	// Description is the banner text of the stage.
	Description string `json:"description"`

	// Status is the outcome of the stage.
	Status StageStatus `json:"status"`

	// Command is the command line that was executed. Empty for skipped stages.
	Command string `json:"command,omitempty"`

	// ExitCode is the exit code of the stage process. -1 means it never started.
	ExitCode int `json:"exit_code"`

	// Duration is how long the stage process ran.
	Duration time.Duration `json:"duration"`
}

// RunReport is the record of one pipeline run.
type RunReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended. Zero while running.
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Status is the state of the run.
	Status RunStatus `json:"status"`

	// IncludeDPO records whether the DPO stages were requested.
	IncludeDPO bool `json:"include_dpo"`

	// Stages holds one result per stage reached, in execution order.
	Stages []StageResult `json:"stages"`

	// FailedStage is the stage that stopped the run, if any.
	FailedStage StageID `json:"failed_stage,omitempty"`

	// ErrorMessage describes the failure, if any.
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewRunReport creates a running RunReport with a fresh ID.
func NewRunReport(includeDPO bool) *RunReport {
	return &RunReport{
		ID:         uuid.NewString(),
		StartedAt:  time.Now(),
		Status:     RunStatusRunning,
		IncludeDPO: includeDPO,
		Stages:     make([]StageResult, 0, len(StageOrder)),
	}
}

// AddResult appends a stage result to the report.
func (r *RunReport) AddResult(result StageResult) {
	r.Stages = append(r.Stages, result)
}

// Finish marks the run as ended with the given status.
func (r *RunReport) Finish(status RunStatus) {
	r.Status = status
	r.FinishedAt = time.Now()
}

// Duration returns the wall-clock time of the run.
// For a run still in progress it returns the time elapsed so far.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Executed returns the IDs of stages whose process was started, in order.
func (r *RunReport) Executed() []StageID {
	ids := make([]StageID, 0, len(r.Stages))
	for _, s := range r.Stages {
		if s.Status != StageStatusSkipped {
			ids = append(ids, s.Stage)
		}
	}
	return ids
}

// Skipped returns the IDs of stages disabled by flags, in order.
func (r *RunReport) Skipped() []StageID {
	ids := make([]StageID, 0)
	for _, s := range r.Stages {
		if s.Status == StageStatusSkipped {
			ids = append(ids, s.Stage)
		}
	}
	return ids
}

// Succeeded reports whether the run completed without a failing stage.
func (r *RunReport) Succeeded() bool {
	return r.Status == RunStatusSucceeded
}
