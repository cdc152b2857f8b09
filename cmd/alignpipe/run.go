package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/alignpipe/internal/config"
	"github.com/nao1215/alignpipe/internal/database"
	applog "github.com/nao1215/alignpipe/internal/log"
	"github.com/nao1215/alignpipe/internal/model"
	"github.com/nao1215/alignpipe/internal/pipeline"
	"github.com/nao1215/alignpipe/internal/report"
	"github.com/nao1215/alignpipe/internal/runner"
)

// stageFlags maps each stage-control flag to its help text.
var stageFlags = []struct {
	name  string
	usage string
}{
	{"include_dpo", "Include DPO training and evaluation"},
	{"skip_data_prep", "Skip data preparation"},
	{"skip_baseline", "Skip baseline evaluation"},
	{"skip_qlora_train", "Skip QLoRA training"},
	{"skip_qlora_eval", "Skip QLoRA evaluation"},
	{"skip_dpo_train", "Skip DPO training"},
	{"skip_dpo_eval", "Skip DPO evaluation"},
	{"skip_comparison", "Skip comparison"},
}

// addPipelineFlags registers the flags of a pipeline run on cmd.
func addPipelineFlags(cmd *cobra.Command) {
	// Pipeline control
	for _, f := range stageFlags {
		cmd.Flags().Bool(f.name, false, f.usage)
	}

	// Project settings
	cmd.Flags().StringP("config", "c", "",
		"Project file path (default: .alignpipe in current or home directory)")
	cmd.Flags().String("env-file", config.DefaultEnvFile,
		"Environment file whose variables are passed to every stage")
	cmd.Flags().StringP("workdir", "C", "",
		"Directory the stage scripts run in (default: current directory)")
	cmd.Flags().String("python", config.DefaultPython,
		"Python interpreter used to run the stage scripts")
	cmd.Flags().Int("num-samples", config.DefaultNumSamples,
		"Number of evaluation samples")

	// Behavior
	cmd.Flags().Bool("dry-run", false,
		"Print the planned stages without running them")
	cmd.Flags().String("log-format", config.LogFormatText,
		"Log format: text or json")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the run summary to the specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")
}

// runPipelineCmd executes the pipeline.
func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := applog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.DryRun {
		return printPlan(cmd.OutOrStdout(), cfg)
	}

	// Cancel on SIGINT/SIGTERM; the running stage is killed through ctx.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPipeline(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the project file, the .env file and
// cobra command flags, in that order of precedence (flags win).
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit project file must exist; an implicit one is optional.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
		cfg.ConfigFilePath = configPath
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	stageTargets := map[string]*bool{
		"include_dpo":      &cfg.IncludeDPO,
		"skip_data_prep":   &cfg.SkipDataPrep,
		"skip_baseline":    &cfg.SkipBaseline,
		"skip_qlora_train": &cfg.SkipQLoRATrain,
		"skip_qlora_eval":  &cfg.SkipQLoRAEval,
		"skip_dpo_train":   &cfg.SkipDPOTrain,
		"skip_dpo_eval":    &cfg.SkipDPOEval,
		"skip_comparison":  &cfg.SkipComparison,
	}
	for _, f := range stageFlags {
		if *stageTargets[f.name], err = flags.GetBool(f.name); err != nil {
			return nil, err
		}
	}

	// Flags override the project file only when given explicitly.
	if flags.Changed("python") {
		if cfg.Python, err = flags.GetString("python"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("num-samples") {
		if cfg.NumSamples, err = flags.GetInt("num-samples"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workdir") {
		if cfg.WorkDir, err = flags.GetString("workdir"); err != nil {
			return nil, err
		}
	}
	explicitEnvFile := cfg.EnvFilePath != config.DefaultEnvFile
	if flags.Changed("env-file") {
		if cfg.EnvFilePath, err = flags.GetString("env-file"); err != nil {
			return nil, err
		}
		explicitEnvFile = true
	}

	if err := loadEnv(cfg, explicitEnvFile, !flags.Changed("env-file")); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnv reads the .env file into cfg.Env. Values from the .env file
// replace equal keys from the project file. A missing file is an error only
// when it was requested explicitly. Paths that did not come from the command
// line are resolved against the work directory.
func loadEnv(cfg *config.Config, explicit, resolve bool) error {
	path := cfg.EnvFilePath
	if resolve {
		path = cfg.Resolve(path)
	}

	vars, err := config.LoadEnvFile(path)
	if errors.Is(err, config.ErrEnvFileNotFound) && !explicit {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	if cfg.Env == nil {
		cfg.Env = make(map[string]string, len(vars))
	}
	for k, v := range vars {
		cfg.Env[k] = v
	}
	cfg.EnvFilePath = path
	return nil
}

// runPipeline runs every stage, writes the summary and records the run.
func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting pipeline",
		"includeDPO", cfg.IncludeDPO,
		"python", cfg.Python,
		"numSamples", cfg.NumSamples,
		"workdir", cfg.WorkDir,
		"configFile", cfg.ConfigFilePath,
	)
	logger.Debug("stage environment", applog.EnvGroup("env", cfg.Env))

	executor := runner.NewExecExecutor(
		runner.WithDir(cfg.WorkDir),
		runner.WithEnv(cfg.Env),
		runner.WithOutput(stdout, stderr),
	)
	stageRunner := runner.New(executor,
		runner.WithWriter(stdout),
		runner.WithLogger(logger),
	)
	p := pipeline.DefaultPipeline(cfg, stageRunner, pipeline.WithLogger(logger))

	runReport := model.NewRunReport(cfg.IncludeDPO)
	runErr := p.Execute(ctx, runReport)

	if err := outputReport(cfg, runReport, stdout); err != nil {
		logger.Error("report failed", "error", err)
	}

	// The run is recorded even when it was interrupted.
	if err := saveRun(context.WithoutCancel(ctx), cfg, runReport, logger); err != nil {
		logger.Error("failed to save run", "run_id", runReport.ID, "error", err)
	}

	return runErr
}

// locations returns the artifact paths as seen from the caller's directory.
func locations(cfg *config.Config) report.Locations {
	return report.Locations{
		ResultsDir:        cfg.Resolve(cfg.ResultsDir),
		ModelsDir:         cfg.Resolve(cfg.ModelsDir),
		ComparisonMetrics: cfg.Resolve(cfg.ComparisonMetricsPath()),
		Visualization:     cfg.Resolve(cfg.VisualizationPath()),
	}
}

// outputReport writes the run summary in the requested format.
// Without --output the summary goes to stdout; with --output the plain
// summary still goes to stdout and the requested format goes to the file.
func outputReport(cfg *config.Config, runReport *model.RunReport, stdout io.Writer) error {
	simple := report.NewSimpleWriter(stdout,
		report.WithLocations(locations(cfg)),
		report.WithVerbose(cfg.Verbose),
	)

	if cfg.ReportFile == "" {
		_, err := selectWriter(cfg, stdout).Write(runReport)
		return err
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	_, err = report.NewMultiWriter(simple, selectWriter(cfg, f)).Write(runReport)
	return err
}

// selectWriter returns the summary writer for the configured format.
func selectWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w, report.WithMarkdownLocations(locations(cfg)))
	default:
		return report.NewSimpleWriter(w,
			report.WithLocations(locations(cfg)),
			report.WithVerbose(cfg.Verbose),
		)
	}
}

// saveRun stores the run report in the history database if enabled.
func saveRun(ctx context.Context, cfg *config.Config, runReport *model.RunReport, logger *slog.Logger) error {
	if !cfg.SaveHistory {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.SaveRun(ctx, runReport); err != nil {
		return err
	}

	logger.Info("run saved to history", "run_id", runReport.ID, "db", db.Path())
	return nil
}

// printPlan lists the stages a run would execute without starting any process.
func printPlan(w io.Writer, cfg *config.Config) error {
	plan := pipeline.Plan(cfg)

	fmt.Fprintf(w, "Planned stages (dry run, %d of %d enabled):\n\n",
		len(pipeline.EnabledStages(plan)), len(plan))

	for _, ps := range plan {
		desc := ps.ID.Description()
		if !ps.Enabled {
			fmt.Fprintf(w, "  [skip] %s\n", desc)
			continue
		}
		fmt.Fprintf(w, "  [run]  %s\n", desc)
		fmt.Fprintf(w, "         %s\n", ps.Command().String())
		if ps.ID == model.StageComparison && cfg.IncludeDPO {
			fmt.Fprintf(w, "         (--dpo %s is added if that file exists when the stage starts)\n",
				cfg.ResultsPath("dpo"))
		}
	}

	if cfg.WorkDir != "" {
		fmt.Fprintf(w, "\nWorking directory: %s\n", cfg.WorkDir)
	}
	if len(cfg.Env) > 0 {
		fmt.Fprintf(w, "Extra environment variables: %d\n", len(cfg.Env))
	}
	return nil
}
