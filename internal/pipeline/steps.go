package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/alignpipe/internal/config"
	"github.com/nao1215/alignpipe/internal/model"
	"github.com/nao1215/alignpipe/internal/runner"
)

// StageRunner executes one stage process. *runner.Runner implements it.
type StageRunner interface {
	Run(ctx context.Context, stage model.Stage) (runner.Result, error)
}

// StageStep runs one planned stage through a StageRunner.
// A disabled stage is recorded as skipped without touching the runner.
type StageStep struct {
	planned PlannedStage
	runner  StageRunner
	logger  *slog.Logger
}

// StageStepOption configures a StageStep.
type StageStepOption func(*StageStep)

// WithStageLogger sets a custom logger for the stage step.
func WithStageLogger(logger *slog.Logger) StageStepOption {
	return func(s *StageStep) {
		s.logger = logger
	}
}

// NewStageStep creates a step for a planned stage.
func NewStageStep(planned PlannedStage, r StageRunner, opts ...StageStepOption) *StageStep {
	s := &StageStep{
		planned: planned,
		runner:  r,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the stage ID.
func (s *StageStep) Name() string {
	return string(s.planned.ID)
}

// Do executes the stage and appends its result to the report.
func (s *StageStep) Do(ctx context.Context, report *model.RunReport) error {
	id := s.planned.ID

	if !s.planned.Enabled {
		s.logger.Debug("skipping stage", "stage", id)
		report.AddResult(model.StageResult{
			Stage:       id,
			Description: id.Description(),
			Status:      model.StageStatusSkipped,
		})
		return nil
	}

	stage := model.NewStage(id, s.planned.Command())
	result, err := s.runner.Run(ctx, stage)

	stageResult := model.StageResult{
		Stage:       id,
		Description: stage.Description,
		Status:      model.StageStatusSucceeded,
		Command:     stage.Command.String(),
		ExitCode:    result.ExitCode,
		Duration:    result.Duration,
	}

	if err != nil {
		stageResult.Status = model.StageStatusFailed
		report.FailedStage = id
		report.AddResult(stageResult)
		return err
	}

	report.AddResult(stageResult)
	return nil
}

// DefaultPipeline builds the alignment pipeline for cfg: every planned
// stage, enabled or not, becomes a StageStep in the fixed order.
func DefaultPipeline(cfg *config.Config, r StageRunner, opts ...Option) *Pipeline {
	p := New(opts...)
	for _, planned := range Plan(cfg, p.planOpts...) {
		p.AddStep(NewStageStep(planned, r, WithStageLogger(p.logger)))
	}
	return p
}
