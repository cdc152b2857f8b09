package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/alignpipe/internal/config"
	"github.com/nao1215/alignpipe/internal/model"
	"github.com/nao1215/alignpipe/internal/runner"
)

// fakeStageRunner records every stage it is asked to run.
// Stages listed in failures exit with the given code.
type fakeStageRunner struct {
	failures map[model.StageID]int
	calls    []model.Stage
	onRun    func(stage model.Stage)
}

func (f *fakeStageRunner) Run(_ context.Context, stage model.Stage) (runner.Result, error) {
	f.calls = append(f.calls, stage)
	if f.onRun != nil {
		f.onRun(stage)
	}
	if code, ok := f.failures[stage.ID]; ok {
		return runner.Result{ExitCode: code, Duration: time.Millisecond}, &runner.StageError{
			Stage:       stage.ID,
			Description: stage.Description,
			ExitCode:    code,
		}
	}
	return runner.Result{Duration: time.Millisecond}, nil
}

func (f *fakeStageRunner) ran() []model.StageID {
	ids := make([]model.StageID, 0, len(f.calls))
	for _, s := range f.calls {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestStageStep(t *testing.T) {
	t.Parallel()

	cmd := model.NewCommand("python", "train.py")

	t.Run("records a successful stage", func(t *testing.T) {
		t.Parallel()

		fake := &fakeStageRunner{}
		step := NewStageStep(PlannedStage{
			ID:      model.StageQLoRATrain,
			Enabled: true,
			Command: func() model.Command { return cmd },
		}, fake, WithStageLogger(discardLogger()))

		if step.Name() != "qlora_train" {
			t.Errorf("expected name qlora_train, got %q", step.Name())
		}

		report := model.NewRunReport(false)
		if err := step.Do(t.Context(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []model.StageResult{{
			Stage:       model.StageQLoRATrain,
			Description: "STEP 3: QLoRA Training",
			Status:      model.StageStatusSucceeded,
			Command:     "python train.py",
			Duration:    time.Millisecond,
		}}
		if diff := cmp.Diff(want, report.Stages); diff != "" {
			t.Errorf("results mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("records a skipped stage without running it", func(t *testing.T) {
		t.Parallel()

		fake := &fakeStageRunner{}
		resolved := false
		step := NewStageStep(PlannedStage{
			ID: model.StageBaselineEval,
			Command: func() model.Command {
				resolved = true
				return cmd
			},
		}, fake, WithStageLogger(discardLogger()))

		report := model.NewRunReport(false)
		if err := step.Do(t.Context(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fake.calls) != 0 {
			t.Errorf("expected no runner calls, got %d", len(fake.calls))
		}
		if resolved {
			t.Error("skipped stage should not resolve its command")
		}
		if got := report.Skipped(); len(got) != 1 || got[0] != model.StageBaselineEval {
			t.Errorf("expected baseline_eval skipped, got %v", got)
		}
	})

	t.Run("records a failing stage and returns the stage error", func(t *testing.T) {
		t.Parallel()

		fake := &fakeStageRunner{failures: map[model.StageID]int{model.StageDPOTrain: 3}}
		step := NewStageStep(PlannedStage{
			ID:      model.StageDPOTrain,
			Enabled: true,
			Command: func() model.Command { return cmd },
		}, fake, WithStageLogger(discardLogger()))

		report := model.NewRunReport(true)
		err := step.Do(t.Context(), report)

		var stageErr *runner.StageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("expected *runner.StageError, got %v", err)
		}
		if stageErr.ExitCode != 3 {
			t.Errorf("expected exit code 3, got %d", stageErr.ExitCode)
		}
		if report.FailedStage != model.StageDPOTrain {
			t.Errorf("expected failed stage dpo_train, got %q", report.FailedStage)
		}
		if report.Stages[0].Status != model.StageStatusFailed || report.Stages[0].ExitCode != 3 {
			t.Errorf("unexpected result: %+v", report.Stages[0])
		}
	})
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	run := func(t *testing.T, cfg *config.Config, fake *fakeStageRunner, exists FileExistsFunc) (*model.RunReport, error) {
		t.Helper()
		p := DefaultPipeline(cfg, fake, WithLogger(discardLogger()), WithPlanOptions(WithFileExists(exists)))
		if p.StepCount() != len(model.StageOrder) {
			t.Fatalf("expected %d steps, got %d", len(model.StageOrder), p.StepCount())
		}
		report := model.NewRunReport(cfg.IncludeDPO)
		return report, p.Execute(t.Context(), report)
	}

	t.Run("runs five stages by default", func(t *testing.T) {
		t.Parallel()

		fake := &fakeStageRunner{}
		report, err := run(t, config.NewConfig(), fake, noFiles)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []model.StageID{
			model.StageDataPrep, model.StageBaselineEval, model.StageQLoRATrain,
			model.StageQLoRAEval, model.StageComparison,
		}
		if diff := cmp.Diff(want, fake.ran()); diff != "" {
			t.Errorf("stages run mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]model.StageID{model.StageDPOTrain, model.StageDPOEval}, report.Skipped()); diff != "" {
			t.Errorf("skipped mismatch (-want +got):\n%s", diff)
		}
		if !report.Succeeded() {
			t.Errorf("expected success, got %q", report.Status)
		}
	})

	t.Run("runs six stages with include_dpo and skip_baseline", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.IncludeDPO = true
		cfg.SkipBaseline = true

		dpoPresent := false
		fake := &fakeStageRunner{onRun: func(stage model.Stage) {
			if stage.ID == model.StageDPOEval {
				dpoPresent = true
			}
		}}
		_, err := run(t, cfg, fake, func(string) bool { return dpoPresent })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []model.StageID{
			model.StageDataPrep, model.StageQLoRATrain, model.StageQLoRAEval,
			model.StageDPOTrain, model.StageDPOEval, model.StageComparison,
		}
		if diff := cmp.Diff(want, fake.ran()); diff != "" {
			t.Errorf("stages run mismatch (-want +got):\n%s", diff)
		}
		last := fake.calls[len(fake.calls)-1].Command.Args
		if last[len(last)-2] != "--dpo" {
			t.Errorf("expected comparison to include --dpo, got %v", last)
		}
	})

	t.Run("stops after the failing stage", func(t *testing.T) {
		t.Parallel()

		fake := &fakeStageRunner{failures: map[model.StageID]int{model.StageQLoRATrain: 1}}
		report, err := run(t, config.NewConfig(), fake, noFiles)

		var stageErr *runner.StageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("expected *runner.StageError, got %v", err)
		}
		want := []model.StageID{model.StageDataPrep, model.StageBaselineEval, model.StageQLoRATrain}
		if diff := cmp.Diff(want, fake.ran()); diff != "" {
			t.Errorf("stages run mismatch (-want +got):\n%s", diff)
		}
		if report.Status != model.RunStatusFailed {
			t.Errorf("expected failed status, got %q", report.Status)
		}
		if report.FailedStage != model.StageQLoRATrain {
			t.Errorf("expected failed stage qlora_train, got %q", report.FailedStage)
		}
		if len(report.Stages) != 3 {
			t.Errorf("expected 3 recorded stages, got %d", len(report.Stages))
		}
	})

	t.Run("compares without --dpo when the DPO results are absent", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.IncludeDPO = true
		cfg.SkipDPOTrain = true
		cfg.SkipDPOEval = true

		fake := &fakeStageRunner{}
		if _, err := run(t, cfg, fake, noFiles); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		last := fake.calls[len(fake.calls)-1]
		if last.ID != model.StageComparison {
			t.Fatalf("expected comparison last, got %q", last.ID)
		}
		for _, arg := range last.Command.Args {
			if arg == "--dpo" {
				t.Errorf("unexpected --dpo in %v", last.Command.Args)
			}
		}
	})

	t.Run("runs nothing when every stage is skipped", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SkipDataPrep = true
		cfg.SkipBaseline = true
		cfg.SkipQLoRATrain = true
		cfg.SkipQLoRAEval = true
		cfg.SkipComparison = true

		fake := &fakeStageRunner{}
		report, err := run(t, cfg, fake, noFiles)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fake.calls) != 0 {
			t.Errorf("expected no stages run, got %v", fake.ran())
		}
		if len(report.Skipped()) != 7 || !report.Succeeded() {
			t.Errorf("expected 7 skipped and success, got %v %q", report.Skipped(), report.Status)
		}
	})
}
