package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/alignpipe/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence and record their outcome in the run report.
type Step interface {
	// Do executes the step. A non-nil error stops the pipeline.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps    []Step
	logger   *slog.Logger
	planOpts []PlanOption
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithPlanOptions passes options to Plan when DefaultPipeline builds the steps.
func WithPlanOptions(opts ...PlanOption) Option {
	return func(p *Pipeline) {
		p.planOpts = append(p.planOpts, opts...)
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and finishes the report.
//
// Cancellation is checked before each step; a running stage process is
// stopped through ctx by the executor. The first step error ends the run:
// no later step is attempted and the error is returned unchanged.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	p.logger.Info("pipeline started",
		"run_id", report.ID,
		"steps", len(p.steps),
	)

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.ErrorMessage = ctx.Err().Error()
			report.Finish(model.RunStatusCancelled)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step", "step", step.Name())

		if err := step.Do(ctx, report); err != nil {
			report.ErrorMessage = err.Error()
			if ctx.Err() != nil {
				report.Finish(model.RunStatusCancelled)
			} else {
				report.Finish(model.RunStatusFailed)
			}
			p.logger.Error("pipeline stopped",
				"step", step.Name(),
				"run_id", report.ID,
				"error", err,
			)
			return err
		}
	}

	report.Finish(model.RunStatusSucceeded)
	p.logger.Info("pipeline completed",
		"run_id", report.ID,
		"duration", report.Duration(),
	)
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
