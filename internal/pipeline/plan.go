package pipeline

import (
	"os"
	"strconv"

	"github.com/nao1215/alignpipe/internal/config"
	"github.com/nao1215/alignpipe/internal/model"
)

// CommandFunc resolves a stage command at the moment the stage starts.
type CommandFunc func() model.Command

// PlannedStage is one entry of the fixed stage order.
type PlannedStage struct {
	// ID identifies the stage.
	ID model.StageID

	// Enabled is false when a flag skips the stage.
	Enabled bool

	// Command builds the stage command.
	Command CommandFunc
}

// FileExistsFunc reports whether a path exists.
type FileExistsFunc func(path string) bool

// PlanOption configures Plan.
type PlanOption func(*planOptions)

type planOptions struct {
	fileExists FileExistsFunc
}

// WithFileExists replaces the filesystem check used by the comparison stage.
func WithFileExists(fn FileExistsFunc) PlanOption {
	return func(o *planOptions) {
		o.fileExists = fn
	}
}

// fileExists is the default FileExistsFunc.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Plan returns the seven stages in execution order with their gating applied.
//
// A stage is enabled iff its skip flag is false; the DPO stages also need
// IncludeDPO. The comparison command is resolved lazily: its --dpo argument
// is added only if IncludeDPO is set and the DPO results file exists when
// the comparison stage starts.
func Plan(cfg *config.Config, opts ...PlanOption) []PlannedStage {
	o := &planOptions{fileExists: fileExists}
	for _, opt := range opts {
		opt(o)
	}

	python := cfg.Python
	samples := strconv.Itoa(cfg.NumSamples)
	static := func(cmd model.Command) CommandFunc {
		return func() model.Command { return cmd }
	}

	dataPrep := model.NewCommand(python, cfg.Scripts.PrepareData,
		"--num_samples", samples,
		"--output_file", cfg.EvaluationSetPath(),
	)
	baselineEval := model.NewCommand(python, cfg.Scripts.Evaluate,
		"--config", cfg.TrainingConfig,
		"--num_samples", samples,
	)
	qloraTrain := model.NewCommand(python, cfg.Scripts.TrainQLoRA,
		"--config", cfg.TrainingConfig,
	)
	qloraEval := model.NewCommand(python, cfg.Scripts.Evaluate,
		"--config", cfg.TrainingConfig,
		"--model_path", cfg.AdapterPath(cfg.QLoRAAdapter),
		"--num_samples", samples,
	)
	dpoTrain := model.NewCommand(python, cfg.Scripts.TrainDPO,
		"--config", cfg.DPOConfig,
	)
	dpoEval := model.NewCommand(python, cfg.Scripts.Evaluate,
		"--config", cfg.DPOConfig,
		"--model_path", cfg.AdapterPath(cfg.DPOAdapter),
		"--num_samples", samples,
	)
	compare := model.NewCommand(python, cfg.Scripts.Compare,
		"--baseline", cfg.ResultsPath("baseline"),
		"--qlora", cfg.ResultsPath("qlora"),
	)
	dpoResults := cfg.ResultsPath("dpo")
	includeDPO := cfg.IncludeDPO

	comparison := func() model.Command {
		if includeDPO && o.fileExists(cfg.Resolve(dpoResults)) {
			return compare.With("--dpo", dpoResults)
		}
		return compare
	}

	return []PlannedStage{
		{ID: model.StageDataPrep, Enabled: !cfg.SkipDataPrep, Command: static(dataPrep)},
		{ID: model.StageBaselineEval, Enabled: !cfg.SkipBaseline, Command: static(baselineEval)},
		{ID: model.StageQLoRATrain, Enabled: !cfg.SkipQLoRATrain, Command: static(qloraTrain)},
		{ID: model.StageQLoRAEval, Enabled: !cfg.SkipQLoRAEval, Command: static(qloraEval)},
		{ID: model.StageDPOTrain, Enabled: cfg.IncludeDPO && !cfg.SkipDPOTrain, Command: static(dpoTrain)},
		{ID: model.StageDPOEval, Enabled: cfg.IncludeDPO && !cfg.SkipDPOEval, Command: static(dpoEval)},
		{ID: model.StageComparison, Enabled: !cfg.SkipComparison, Command: comparison},
	}
}

// EnabledStages returns the IDs of the enabled stages in order.
func EnabledStages(plan []PlannedStage) []model.StageID {
	ids := make([]model.StageID, 0, len(plan))
	for _, ps := range plan {
		if ps.Enabled {
			ids = append(ids, ps.ID)
		}
	}
	return ids
}
