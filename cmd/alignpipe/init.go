package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/alignpipe/internal/config"
)

//go:embed templates/alignpipe.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new alignpipe project file",
		Long: `Initialize creates a new .alignpipe project file in the current directory.

The generated file documents every setting with its default value:
- Python interpreter and number of evaluation samples
- Data, models and results directories
- Training and DPO config files, adapter names and stage scripts
- Extra environment variables for the stage processes

Examples:
  # Create .alignpipe in current directory
  alignpipe init

  # Create the project file at a specific path
  alignpipe init -o experiments/alignpipe.yaml

  # Force overwrite existing file
  alignpipe init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the project file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing project file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("project file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/alignpipe.yaml")
	if err != nil {
		return fmt.Errorf("failed to read project file template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created project file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to adjust:")
	fmt.Fprintln(out, "  - The Python interpreter and sample count")
	fmt.Fprintln(out, "  - Script, config and adapter paths")
	fmt.Fprintln(out, "  - Extra environment variables for the stages")

	return nil
}
