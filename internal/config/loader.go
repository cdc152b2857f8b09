package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default project file name.
const DefaultConfigFile = ".alignpipe"

// ErrConfigNotFound is returned when the project file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// PathsSection groups the data, models and results directories.
type PathsSection struct {
	DataDir    string `yaml:"data_dir,omitempty"`
	ModelsDir  string `yaml:"models_dir,omitempty"`
	ResultsDir string `yaml:"results_dir,omitempty"`
}

// ConfigsSection groups the training config files handed to the scripts.
type ConfigsSection struct {
	Training string `yaml:"training,omitempty"`
	DPO      string `yaml:"dpo,omitempty"`
}

// AdaptersSection groups the adapter directory names.
type AdaptersSection struct {
	QLoRA string `yaml:"qlora,omitempty"`
	DPO   string `yaml:"dpo,omitempty"`
}

// ScriptsSection overrides the stage script paths.
type ScriptsSection struct {
	PrepareData string `yaml:"prepare_data,omitempty"`
	Evaluate    string `yaml:"evaluate,omitempty"`
	TrainQLoRA  string `yaml:"train_qlora,omitempty"`
	TrainDPO    string `yaml:"train_dpo,omitempty"`
	Compare     string `yaml:"compare,omitempty"`
}

// File represents the structure of the .alignpipe project file.
// Every field is optional; zero values keep the current setting.
type File struct {
	// Python overrides the interpreter.
	Python string `yaml:"python,omitempty"`

	// NumSamples overrides the evaluation set size.
	NumSamples int `yaml:"num_samples,omitempty"`

	// WorkDir is the directory the stages run in, relative to the project file.
	WorkDir string `yaml:"workdir,omitempty"`

	// EnvFile overrides the .env file location.
	EnvFile string `yaml:"env_file,omitempty"`

	Paths    PathsSection    `yaml:"paths,omitempty"`
	Configs  ConfigsSection  `yaml:"configs,omitempty"`
	Adapters AdaptersSection `yaml:"adapters,omitempty"`
	Scripts  ScriptsSection  `yaml:"scripts,omitempty"`

	// Env holds extra variables for every stage process.
	Env map[string]string `yaml:"env,omitempty"`

	// dir is the directory the file was loaded from.
	dir string
}

// LoadConfigFile loads a project file from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if f.Env == nil {
		f.Env = make(map[string]string)
	}
	f.dir = filepath.Dir(path)

	return &f, nil
}

// FindConfigFile searches for the project file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .alignpipe in the current directory
// 3. Look for .alignpipe in the user's home directory
//
// Returns the path to the project file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply merges the project file into cfg. Non-empty file values override
// cfg; env entries are added to cfg.Env, replacing equal keys.
// A relative workdir is resolved against the file's directory.
func (f *File) Apply(cfg *Config) {
	setString(&cfg.Python, f.Python)
	if f.NumSamples != 0 {
		cfg.NumSamples = f.NumSamples
	}
	if f.WorkDir != "" {
		workDir := f.WorkDir
		if !filepath.IsAbs(workDir) && f.dir != "" {
			workDir = filepath.Join(f.dir, workDir)
		}
		cfg.WorkDir = workDir
	}
	setString(&cfg.EnvFilePath, f.EnvFile)

	setString(&cfg.DataDir, f.Paths.DataDir)
	setString(&cfg.ModelsDir, f.Paths.ModelsDir)
	setString(&cfg.ResultsDir, f.Paths.ResultsDir)

	setString(&cfg.TrainingConfig, f.Configs.Training)
	setString(&cfg.DPOConfig, f.Configs.DPO)

	setString(&cfg.QLoRAAdapter, f.Adapters.QLoRA)
	setString(&cfg.DPOAdapter, f.Adapters.DPO)

	setString(&cfg.Scripts.PrepareData, f.Scripts.PrepareData)
	setString(&cfg.Scripts.Evaluate, f.Scripts.Evaluate)
	setString(&cfg.Scripts.TrainQLoRA, f.Scripts.TrainQLoRA)
	setString(&cfg.Scripts.TrainDPO, f.Scripts.TrainDPO)
	setString(&cfg.Scripts.Compare, f.Scripts.Compare)

	if len(f.Env) > 0 {
		if cfg.Env == nil {
			cfg.Env = make(map[string]string, len(f.Env))
		}
		for k, v := range f.Env {
			cfg.Env[k] = v
		}
	}
}

// setString overwrites dst when value is non-empty.
func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
