package config

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
// They reproduce the directory layout the alignment scripts expect when the
// pipeline is started from the project root.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "alignpipe"

	// DefaultPython is the interpreter used to run every stage script.
	DefaultPython = "python"

	// DefaultNumSamples is the size of the evaluation set. It is passed to the
	// data preparation and evaluation scripts and appears in result file names.
	DefaultNumSamples = 100

	// DefaultDataDir holds the prepared evaluation set.
	DefaultDataDir = "data"

	// DefaultModelsDir holds the trained adapters.
	DefaultModelsDir = "models"

	// DefaultResultsDir holds evaluation CSVs, comparison metrics and plots.
	DefaultResultsDir = "results"

	// DefaultTrainingConfig is the config file for baseline/QLoRA evaluation and QLoRA training.
	DefaultTrainingConfig = "configs/training_config.yaml"

	// DefaultDPOConfig is the config file for DPO training and evaluation.
	DefaultDPOConfig = "configs/dpo_config.yaml"

	// DefaultQLoRAAdapter is the adapter directory written by QLoRA training.
	DefaultQLoRAAdapter = "llama3-qlora-adapter"

	// DefaultDPOAdapter is the adapter directory written by DPO training.
	DefaultDPOAdapter = "llama3-dpo-adapter"

	// DefaultEvaluationSetFile is the file name of the prepared evaluation set.
	DefaultEvaluationSetFile = "evaluation_set.jsonl"

	// DefaultEnvFile is loaded when present; its absence is not an error.
	DefaultEnvFile = ".env"

	// LogFormatText selects slog's text handler.
	LogFormatText = "text"

	// LogFormatJSON selects slog's JSON handler.
	LogFormatJSON = "json"
)

// Default stage scripts, relative to the working directory.
const (
	DefaultPrepareDataScript = "src/data/prepare_data.py"
	DefaultEvaluateScript    = "src/evaluation/evaluate_model.py"
	DefaultTrainQLoRAScript  = "src/training/train_qlora.py"
	DefaultTrainDPOScript    = "src/training/train_dpo.py"
	DefaultCompareScript     = "src/evaluation/compare_results.py"
)

// Scripts holds the path of each external stage script.
type Scripts struct {
	PrepareData string
	Evaluate    string
	TrainQLoRA  string
	TrainDPO    string
	Compare     string
}

// Config holds all configuration options for a pipeline run.
// It is populated once from the project file, the .env file and CLI flags,
// and is then passed to the pipeline explicitly; nothing mutates
// it after Validate.
type Config struct {
	// IncludeDPO enables the optional DPO training and evaluation stages.
	IncludeDPO bool

	// SkipDataPrep disables the data preparation stage.
	SkipDataPrep bool

	// SkipBaseline disables the baseline evaluation stage.
	SkipBaseline bool

	// SkipQLoRATrain disables the QLoRA training stage.
	SkipQLoRATrain bool

	// SkipQLoRAEval disables the QLoRA evaluation stage.
	SkipQLoRAEval bool

	// SkipDPOTrain disables the DPO training stage even when IncludeDPO is set.
	SkipDPOTrain bool

	// SkipDPOEval disables the DPO evaluation stage even when IncludeDPO is set.
	SkipDPOEval bool

	// SkipComparison disables the comparison stage.
	SkipComparison bool

	// Python is the interpreter that runs each stage script.
	Python string

	// NumSamples is the evaluation set size passed to the scripts.
	NumSamples int

	// WorkDir is the directory stage processes run in.
	// Empty means the current directory.
	WorkDir string

	// DataDir, ModelsDir and ResultsDir are relative to WorkDir unless absolute.
	DataDir    string
	ModelsDir  string
	ResultsDir string

	// TrainingConfig is the config file passed to QLoRA training and to the
	// baseline and QLoRA evaluations.
	TrainingConfig string

	// DPOConfig is the config file passed to DPO training and evaluation.
	DPOConfig string

	// QLoRAAdapter and DPOAdapter are adapter directory names under ModelsDir.
	QLoRAAdapter string
	DPOAdapter   string

	// Scripts are the external stage scripts.
	Scripts Scripts

	// ConfigFilePath is the project file given with --config.
	// If empty, .alignpipe is searched in the current and home directories.
	ConfigFilePath string

	// EnvFilePath is the .env file to load. When it equals DefaultEnvFile a
	// missing file is ignored; any other missing path is an error.
	EnvFilePath string

	// Env holds variables from the project file and the .env file.
	// They are added to each stage's environment; variables already set in
	// the parent environment take precedence.
	Env map[string]string

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// DryRun prints the planned stages without starting any process.
	DryRun bool

	// JSONReport and MarkdownReport select the run summary format.
	// They are mutually exclusive; neither means the plain banner.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is where the run summary is written. Empty means stdout.
	ReportFile string

	// SaveHistory stores the run report in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Python:         DefaultPython,
		NumSamples:     DefaultNumSamples,
		DataDir:        DefaultDataDir,
		ModelsDir:      DefaultModelsDir,
		ResultsDir:     DefaultResultsDir,
		TrainingConfig: DefaultTrainingConfig,
		DPOConfig:      DefaultDPOConfig,
		QLoRAAdapter:   DefaultQLoRAAdapter,
		DPOAdapter:     DefaultDPOAdapter,
		Scripts: Scripts{
			PrepareData: DefaultPrepareDataScript,
			Evaluate:    DefaultEvaluateScript,
			TrainQLoRA:  DefaultTrainQLoRAScript,
			TrainDPO:    DefaultTrainDPOScript,
			Compare:     DefaultCompareScript,
		},
		EnvFilePath: DefaultEnvFile,
		Env:         make(map[string]string),
		LogFormat:   LogFormatText,
		SaveHistory: true,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for alignpipe.
// On Linux: ~/.local/share/alignpipe
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// EvaluationSetPath is the file written by the data preparation stage.
func (c *Config) EvaluationSetPath() string {
	return filepath.Join(c.DataDir, DefaultEvaluationSetFile)
}

// AdapterPath returns the directory of the named adapter under ModelsDir.
func (c *Config) AdapterPath(adapter string) string {
	return filepath.Join(c.ModelsDir, adapter)
}

// ResultsPath returns the evaluation CSV for a result label such as
// "baseline", "qlora" or "dpo".
func (c *Config) ResultsPath(label string) string {
	return filepath.Join(c.ResultsDir, fmt.Sprintf("evaluation_%s_%dsamples.csv", label, c.NumSamples))
}

// ComparisonMetricsPath is the metrics CSV written by the comparison script.
func (c *Config) ComparisonMetricsPath() string {
	return filepath.Join(c.ResultsDir, "comparison_metrics.csv")
}

// VisualizationPath is the plot written by the comparison script.
func (c *Config) VisualizationPath() string {
	return filepath.Join(c.ResultsDir, "model_comparison.png")
}

// Resolve returns path as seen from the stage processes' working directory.
// Absolute paths and an empty WorkDir leave path unchanged.
func (c *Config) Resolve(path string) string {
	if c.WorkDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkDir, path)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Python == "" {
		return ErrEmptyPython
	}
	if c.NumSamples <= 0 {
		return ErrInvalidNumSamples
	}
	if c.DataDir == "" || c.ModelsDir == "" || c.ResultsDir == "" {
		return ErrEmptyDirectory
	}
	if c.Scripts.PrepareData == "" || c.Scripts.Evaluate == "" || c.Scripts.TrainQLoRA == "" ||
		c.Scripts.TrainDPO == "" || c.Scripts.Compare == "" {
		return ErrEmptyScript
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}
	return nil
}
